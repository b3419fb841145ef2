package dto

type ErrorResponse struct {
	Error    bool   `json:"error"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
	Assignee string `json:"assignee,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
