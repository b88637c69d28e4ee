package domain

// Bucket is one group of a breakdown or time series.
// Key is nil for the group of events missing the dimension (e.g. no country).
type Bucket struct {
	Key   *string `json:"_id"`
	Count int64   `json:"count"`
}

// KeyString returns the key or "" for the null group.
func (b Bucket) KeyString() string {
	if b.Key == nil {
		return ""
	}
	return *b.Key
}

// TopCode is a ranked QR code enriched with catalog fields.
// Title and Type are nil when the code no longer exists.
type TopCode struct {
	ID    string       `json:"_id"`
	Count int64        `json:"count"`
	Title *string      `json:"title"`
	Type  *ContentType `json:"type"`
}

// ScanAnalytics holds the five aggregation result sets.
type ScanAnalytics struct {
	ScansOverTime     []Bucket  `json:"scansOverTime"`
	DeviceBreakdown   []Bucket  `json:"deviceBreakdown"`
	LocationBreakdown []Bucket  `json:"locationBreakdown"`
	BrowserBreakdown  []Bucket  `json:"browserBreakdown"`
	TopQRCodes        []TopCode `json:"topQRCodes"`
}

// EmptyScanAnalytics returns result sets that encode as empty arrays.
func EmptyScanAnalytics() *ScanAnalytics {
	return &ScanAnalytics{
		ScansOverTime:     []Bucket{},
		DeviceBreakdown:   []Bucket{},
		LocationBreakdown: []Bucket{},
		BrowserBreakdown:  []Bucket{},
		TopQRCodes:        []TopCode{},
	}
}

// DashboardStats is the snapshot shown on a user's dashboard.
type DashboardStats struct {
	TotalQRCodes  int64 `json:"totalQRCodes"`
	TotalScans    int64 `json:"totalScans"`
	ActiveQRCodes int64 `json:"activeQRCodes"`
	RecentScans   int64 `json:"recentScans"`
}

// QRCodeDetail is the analytics detail view of one code.
type QRCodeDetail struct {
	QRCode        *QRCode      `json:"qrCode"`
	Scans         []*ScanEvent `json:"scans"`
	ScansOverTime []Bucket     `json:"scansOverTime"`
}

// Sum returns the total count across buckets.
func Sum(buckets []Bucket) int64 {
	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	return total
}
