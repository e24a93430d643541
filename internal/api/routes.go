package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/v1/about"

	ProvisionRoute = "/v1/provision"

	UsersParent         = "/v1/users"
	ListUsersRoute      = UsersParent
	InactiveUsersRoute  = UsersParent + "/inactive"
	DeactivateUserRoute = UsersParent + "/{username}/deactivate"
	ActivateUserRoute   = UsersParent + "/{username}/activate"

	StatsRoute = "/v1/stats"

	ChallengeParent      = "/v1/challenge/"
	IssueChallengeRoute  = ChallengeParent + "issue"
	VerifyChallengeRoute = ChallengeParent + "verify"
	SendChallengeRoute   = ChallengeParent + "send"

	ListAuditRecordsRoute = "/v1/audit/records"

	TaskParent       = "/v1/tasks/"
	ListTasksRoute   = TaskParent
	TriggerTaskRoute = TaskParent + "{name}/trigger"
	LogsForTaskRoute = TaskParent + "{name}/logs"
)
