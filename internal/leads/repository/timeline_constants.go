package repository

// ActorType constants identify the category of entity that produced a timeline event.
const (
	ActorTypeUser   = "User"   // Studio member acting through the application UI
	ActorTypeSystem = "System" // Internal system process (authorization, follow-up worker)
)

// System actor names.
const (
	ActorNameAuthorization = "Authorization"
	ActorNameFollowUp      = "FollowUp"
)

// EventType constants identify the nature of a timeline event.
const (
	EventTypeStageChange         = "stage_change"
	EventTypeTagAttached         = "tag_attached"
	EventTypeTagDetached         = "tag_detached"
	EventTypeEventDateSet        = "event_date_set"
	EventTypeQuotationAuthorized = "quotation_authorized"
)
