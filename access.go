package inkpot

type Access byte

const (
	// No identity is attached to the request. Callers redirect to login.
	AccessAnonymous Access = 0
	AccessForbidden Access = 1
	AccessAllowed   Access = 2
)

func (a Access) String() string {
	switch a {
	case AccessAnonymous:
		return "anonymous"
	case AccessForbidden:
		return "forbidden"
	case AccessAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// AuthorAccess decides whether actor may modify a resource owned by author.
// A nil actor is anonymous.
func AuthorAccess(actor *User, author UserId) Access {
	switch {
	case actor == nil:
		return AccessAnonymous
	case actor.Id == author:
		return AccessAllowed
	default:
		return AccessForbidden
	}
}

func CanModify(actor *User, author UserId) bool {
	return AuthorAccess(actor, author) == AccessAllowed
}
