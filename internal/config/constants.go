package config

// Default locations for on-disk state
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./ebooklib.db"

	// DefaultUploadDir is where the local storage provider keeps PDFs and covers
	DefaultUploadDir = "./uploads"
)
