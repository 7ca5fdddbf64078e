package policy

// Settings пороги движка. Меняются без релиза через policy_settings.
type Settings struct {
	OwnerApprovalCost float64 `json:"owner_approval_cost"` // выше нужна подпись владельца
	MaxCost           float64 `json:"max_cost"`            // выше автоматический отказ
	CrisisMinContext  int     `json:"crisis_min_context"`  // минимальная длина обоснования кризиса
	UrgentDays        int     `json:"urgent_days"`         // дедлайн ближе = HIGH
	RelaxedDays       int     `json:"relaxed_days"`        // дедлайн дальше и дешево = LOW
	LowCost           float64 `json:"low_cost"`
}

func DefaultSettings() Settings {
	return Settings{
		OwnerApprovalCost: 10000,
		MaxCost:           50000,
		CrisisMinContext:  30,
		UrgentDays:        3,
		RelaxedDays:       21,
		LowCost:           1000,
	}
}

// withDefaults заменяет незаданные (нулевые и отрицательные) значения дефолтами.
func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.OwnerApprovalCost <= 0 {
		s.OwnerApprovalCost = def.OwnerApprovalCost
	}
	if s.MaxCost <= 0 {
		s.MaxCost = def.MaxCost
	}
	if s.CrisisMinContext <= 0 {
		s.CrisisMinContext = def.CrisisMinContext
	}
	if s.UrgentDays <= 0 {
		s.UrgentDays = def.UrgentDays
	}
	if s.RelaxedDays <= 0 {
		s.RelaxedDays = def.RelaxedDays
	}
	if s.LowCost <= 0 {
		s.LowCost = def.LowCost
	}
	return s
}

// SettingsSource откуда движок берет пороги на момент оценки.
type SettingsSource interface {
	Settings() Settings
}

// StaticSettings фиксированные пороги (тесты, dry-run без БД).
type StaticSettings Settings

func (s StaticSettings) Settings() Settings { return Settings(s).withDefaults() }
