package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// ErrNilACDFatalLogMsg is used if router, db or service is nil.
	ErrNilACDFatalLogMsg = "router, db or service is nil"
)
