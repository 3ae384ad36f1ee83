package domain

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Listing is a sneaker record. Location is derived from Address at creation time;
// Image and OwnerID never change after creation.
type Listing struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Location    Location `json:"location"`
	URL         string   `json:"url"`
	Image       string   `json:"image"`
	OwnerID     string   `json:"creator"`
}

// NewListing is the caller supplied part of a listing; ID and Location are assigned
// by the service.
type NewListing struct {
	OwnerID     string
	Title       string
	Description string
	Address     string
	URL         string
	ImagePath   string
}

type ListingPatch struct {
	Title       string
	Description string
}
