package manifest

// HandlerType enumerates the supported handler kinds.
type HandlerType string

const (
	// HandlerLookup serves GET /{key} through the worker pool and negotiates the body.
	HandlerLookup HandlerType = "lookup"
	// HandlerQuery posts the request body to the query collaborator and returns raw JSON.
	HandlerQuery HandlerType = "query"
)

const (
	DefaultListen     = "0.0.0.0:63333"
	DefaultStorePath  = "countries.db"
	DefaultTable      = "kv"
	DefaultValueCodec = "json"
	DefaultWorkers    = 3
	DefaultQueueDepth = 64
	DefaultTemplate   = "country.html"
	DefaultKeyParam   = "name"
)
