package models

import (
	"encoding/json"
)

// Input messages

type GenerateRequest struct {
	Prompt string `json:"prompt" description:"Natural-language description of the chart"`
}

type UpdateRequest struct {
	CurrentConfig json.RawMessage `json:"currentConfig" description:"Chart configuration previously returned by this service"`
	Instruction   string          `json:"instruction" description:"How the chart should change"`
}

// ChartResponse wraps the generated chart configuration.
type ChartResponse struct {
	ChartJS json.RawMessage `json:"chartJs" description:"Highcharts chart configuration"`
}

type JobKind string

const (
	JobKindGenerate JobKind = "generate"
	JobKindUpdate   JobKind = "update"
)

// ChartJob is the stream message payload for asynchronous chart requests.
type ChartJob struct {
	JobID         string          `json:"job_id"`
	Kind          JobKind         `json:"kind"`
	Prompt        string          `json:"prompt,omitempty"`
	CurrentConfig json.RawMessage `json:"current_config,omitempty"`
	Instruction   string          `json:"instruction,omitempty"`
}
