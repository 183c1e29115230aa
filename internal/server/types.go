package server

import (
	"github.com/josephgoksu/PageWing/internal/attachments"
	"github.com/josephgoksu/PageWing/internal/ledger"
	"github.com/josephgoksu/PageWing/internal/pipeline"
)

// AttachmentPayload is one named data URI submitted with a round.
type AttachmentPayload struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,datauri"`
}

// RoundRequest is the payload for POST /app and POST /api/rounds.
type RoundRequest struct {
	Email         string              `json:"email" validate:"required,email"`
	Secret        string              `json:"secret" validate:"required"`
	Task          string              `json:"task" validate:"required,max=100,excludesall=/"`
	Round         int                 `json:"round" validate:"min=1"`
	Nonce         string              `json:"nonce" validate:"required"`
	Brief         string              `json:"brief" validate:"required"`
	Checks        []string            `json:"checks"`
	EvaluationURL string              `json:"evaluation_url" validate:"required,url"`
	Attachments   []AttachmentPayload `json:"attachments" validate:"dive"`
}

func (r RoundRequest) toPipeline() pipeline.Request {
	atts := make([]attachments.Attachment, len(r.Attachments))
	for i, a := range r.Attachments {
		atts[i] = attachments.Attachment{Name: a.Name, URL: a.URL}
	}
	return pipeline.Request{
		Email:         r.Email,
		Task:          r.Task,
		Round:         r.Round,
		Nonce:         r.Nonce,
		Brief:         r.Brief,
		Checks:        r.Checks,
		EvaluationURL: r.EvaluationURL,
		Attachments:   atts,
	}
}

// TaskResponse is returned for a successful round.
type TaskResponse = pipeline.Result

// ErrorResponse carries the reason a request was rejected.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// TaskListResponse is the response for GET /api/tasks.
type TaskListResponse struct {
	Tasks []ledger.Entry `json:"tasks"`
	Count int            `json:"count"`
}
