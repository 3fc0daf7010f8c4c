package domain

// Identity is the authenticated actor attached to every request.
type Identity struct {
	UserID    string
	Email     string
	Role      Role
	FirstName string
	LastName  string
	ClientID  *string
}

// LinkedClientID returns the portal client id, or "" when none is linked.
func (i Identity) LinkedClientID() string {
	if i.ClientID == nil {
		return ""
	}
	return *i.ClientID
}
