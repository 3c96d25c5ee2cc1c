package dynamo

// DynamoDB attribute names used in keys, conditions and update expressions.
const (
	fieldAccountID      = "account_id"
	fieldEmail          = "email"
	fieldEmailConfirmed = "email_confirmed"
	fieldUpdatedAt      = "updated_at"
	fieldCacheKey       = "cache_key"
	fieldValue          = "value"
	fieldTTL            = "ttl"
)
