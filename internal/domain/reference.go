package domain

// Справочные данные. Владелец внешний, движок их только читает.

type ClubTier string

const (
	TierStandard ClubTier = "STANDARD"
	TierPremium  ClubTier = "PREMIUM"
	TierFlagship ClubTier = "FLAGSHIP"
)

type Club struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Region string   `json:"region,omitempty"`
	Tier   ClubTier `json:"tier"`
}

type RequestTemplate struct {
	ID              string `json:"id"`
	Code            string `json:"code"` // используется при сопоставлении правил
	Name            string `json:"name"`
	DefaultSLADays  int    `json:"default_sla_days"`
	IsInternal      bool   `json:"is_internal"`
	IsBlacklisted   bool   `json:"is_blacklisted"`
	BlacklistReason string `json:"blacklist_reason,omitempty"`
	CapacityID      string `json:"capacity_id,omitempty"` // команда продакшна, которая берет шаблон
}

type ProductionCapacity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}
