package internal

import "time"

// Project groups links under a user. Projects are owned by the identity side
// of the system; the core only reads them to scope queries.
type Project struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// UTM holds the campaign parameters merged into a link's destination.
// An empty field means the parameter is not set on the link.
type UTM struct {
	Source   string `json:"utmSource,omitempty"`
	Medium   string `json:"utmMedium,omitempty"`
	Campaign string `json:"utmCampaign,omitempty"`
	Term     string `json:"utmTerm,omitempty"`
	Content  string `json:"utmContent,omitempty"`
}

// QueryParam is one utm_* key with its value.
type QueryParam struct {
	Key   string
	Value string
}

// Params returns the set fields as utm_* query parameters in a fixed order.
func (u UTM) Params() []QueryParam {
	all := []QueryParam{
		{Key: "utm_source", Value: u.Source},
		{Key: "utm_medium", Value: u.Medium},
		{Key: "utm_campaign", Value: u.Campaign},
		{Key: "utm_term", Value: u.Term},
		{Key: "utm_content", Value: u.Content},
	}
	params := all[:0]
	for _, p := range all {
		if p.Value != "" {
			params = append(params, p)
		}
	}
	return params
}

type Link struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"projectId"`
	Slug           string    `json:"slug"`
	DestinationURL string    `json:"destinationUrl"`
	UTM            UTM       `json:"utm"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Click is one recorded resolution of a link. Clicks are append-only.
type Click struct {
	ID         string    `json:"id"`
	LinkID     string    `json:"linkId"`
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	Country    string    `json:"country,omitempty"`
	City       string    `json:"city,omitempty"`
	DeviceType string    `json:"deviceType"`
	OS         string    `json:"os"`
	Browser    string    `json:"browser"`
	Referer    string    `json:"referer,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
}

// Signals are the untrusted request-derived inputs of a click. Every field is
// optional.
type Signals struct {
	IP        string
	UserAgent string
	Referer   string
	Country   string
	City      string
}

type Summary struct {
	TotalClicks    int64 `json:"totalClicks"`
	TotalLinks     int64 `json:"totalLinks"`
	UniqueVisitors int64 `json:"uniqueVisitors"`
}

// DailyCount is the number of clicks on one UTC calendar day (YYYY-MM-DD).
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"total"`
}

type OSCount struct {
	OS    string `json:"name"`
	Count int64  `json:"value"`
}
