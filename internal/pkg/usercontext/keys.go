package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	// LocalsKey carries the assembled UserContext through fiber Locals.
	LocalsKey = "USER_CONTEXT"

	AuthKey          = "authenticated"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyIsAdmin       = "isAdmin"
	KeyFromProtected = "from_protected"
	KeyPlan          = "user_plan"
)
