package model

// Dashboard is the data behind the main screen.
type Dashboard struct {
	User         User
	Users        []User
	Customers    []Customer
	Records      []Record
	StatusCounts map[RecordStatus]int
}

// Providers returns the users that are not admins.
func (d Dashboard) Providers() []User {
	providers := make([]User, 0, len(d.Users))
	for _, u := range d.Users {
		if !u.IsAdmin() {
			providers = append(providers, u)
		}
	}
	return providers
}
