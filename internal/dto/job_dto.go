package dto

// ListJobsRequest represents request for recent listings; filters are query parameters
type ListJobsRequest struct{}

// Job is the public view of a stored listing
type Job struct {
	Key             string   `json:"key"`
	Source          string   `json:"source"`
	SourceID        string   `json:"source_id"`
	Title           string   `json:"title"`
	Organization    string   `json:"organization"`
	Location        string   `json:"location"`
	Country         string   `json:"country"`
	Category        string   `json:"category"`
	ExperienceLevel string   `json:"experience_level"`
	Skills          []string `json:"skills"`
	Salary          string   `json:"salary,omitempty"`
	ApplyURL        string   `json:"apply_url"`
	PostedAt        int64    `json:"posted_at"`
	ClosingAt       *int64   `json:"closing_at,omitempty"`
	CreatedAt       int64    `json:"created_at"`
	UpdatedAt       int64    `json:"updated_at"`
}

// ListJobsResponse represents a page of recent listings
type ListJobsResponse struct {
	Jobs       []Job              `json:"jobs"`
	Pagination PaginationResponse `json:"pagination"`
}
