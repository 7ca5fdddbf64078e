package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "briefgov"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanNotifications: кортежи (получатель, причина, бриф) для внешней доставки.
	RedisChanNotifications = RedisNamespace + ":notifications"
	// RedisChanPolicyUpdate: сигнал "перечитать policy_settings".
	RedisChanPolicyUpdate = RedisNamespace + ":policy-update"
)
