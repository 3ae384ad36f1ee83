package domain

// Owner holds the ids of the listings it created. Listings contains a listing id
// if and only if that listing exists.
type Owner struct {
	ID       string
	Listings []string
	Version  int64
}

func (o *Owner) HasListing(id string) bool {
	for _, l := range o.Listings {
		if l == id {
			return true
		}
	}
	return false
}
