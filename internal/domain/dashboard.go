package domain

// Dashboard сводка для консоли: очередь брифов и загрузка продакшна.
type Dashboard struct {
	Briefs struct {
		ByStatus              map[BriefStatus]int `json:"by_status"`
		AwaitingOwnerApproval int                 `json:"awaiting_owner_approval"`
		StalePolicy           int                 `json:"stale_policy"`
	} `json:"briefs"`

	Production struct {
		Queued     int `json:"queued"`
		InProgress int `json:"in_progress"`
		OnHold     int `json:"on_hold"`
		Overdue    int `json:"overdue"`
	} `json:"production"`
}
