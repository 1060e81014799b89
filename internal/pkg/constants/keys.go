package constants

// Redis key formats
const (
	// KeyGeocode holds a resolved coordinate for a normalized address.
	// Format: geocode:addr:{normalized_address}
	KeyGeocode = "geocode:addr:%s"

	// KeyReverseGeocode holds a road/land address for a coordinate bucket.
	// Format: geocode:rev:{geohash}
	KeyReverseGeocode = "geocode:rev:%s"
)

// NSQ topics
const (
	// TopicRouteUpdated carries a RouteResult after every successful poll.
	TopicRouteUpdated = "route.eta.updated"
)
