package store

import "time"

// Entry is one indexed file or directory, keyed by its absolute URL.
type Entry struct {
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	ParentURL string    `json:"parentUrl"`
	RootTag   string    `json:"rootTag"`
	IsDir     bool      `json:"isDir"`
	Size      int64     `json:"size"`
	Modified  string    `json:"modified"`
	LastSeen  time.Time `json:"lastSeen"`
	Stale     bool      `json:"stale"`
}

// IndexStats summarizes the index contents.
type IndexStats struct {
	TotalEntries int            `json:"totalEntries"`
	FileCount    int            `json:"fileCount"`
	DirCount     int            `json:"dirCount"`
	StaleCount   int            `json:"staleCount"`
	ByRoot       map[string]int `json:"byRoot"`
	LastCrawl    time.Time      `json:"lastCrawl"`
}
