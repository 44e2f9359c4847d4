package types

// ImageInfo is one indexed file and its perceptual fingerprints
type ImageInfo struct {
	ID           int64  `json:"id"`
	Path         string `json:"path"`
	SourcePrefix string `json:"source_prefix"`
	Format       string `json:"format"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	CreatedAt    string `json:"created_at"`
	ModifiedAt   string `json:"modified_at"`
	Size         int64  `json:"size"`
	// 64-character bit strings, most significant bit first
	AverageHash     string `json:"average_hash"`
	BlockMedianHash string `json:"block_median_hash"`
	IsRawFormat     bool   `json:"is_raw_format"`
}

// ImageMatch is a search hit with Hamming distances to the query
type ImageMatch struct {
	Path                string
	SourcePrefix        string
	AverageDistance     int
	BlockMedianDistance int
}

// Distance is the combined score used to rank matches, lower is closer.
func (m ImageMatch) Distance() int {
	return m.AverageDistance + m.BlockMedianDistance
}
