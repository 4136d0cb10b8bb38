package models

import "time"

// WorkflowStatus represents the aggregate state of a workflow.
type WorkflowStatus string

const (
	// WorkflowStatusActive indicates constituent tasks are still running.
	WorkflowStatusActive WorkflowStatus = "active"
	// WorkflowStatusCompleted indicates every task completed.
	WorkflowStatusCompleted WorkflowStatus = "completed"
	// WorkflowStatusFailed indicates at least one task failed.
	WorkflowStatusFailed WorkflowStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowStatusActive, WorkflowStatusCompleted, WorkflowStatusFailed:
		return true
	default:
		return false
	}
}

// WorkflowTaskSpec describes one task inside a workflow plan.
// Dependencies reference the Name of other specs in the same plan.
type WorkflowTaskSpec struct {
	// Name identifies the spec within the plan.
	Name string `yaml:"name" json:"name"`
	// Type is the task type to submit.
	Type TaskType `yaml:"task_type" json:"task_type"`
	// AgentType hints which agent kind should execute the task.
	AgentType string `yaml:"agent_type" json:"agent_type"`
	// Priority is the submission priority.
	Priority int `yaml:"priority" json:"priority"`
	// InputData carries the task parameters.
	InputData map[string]interface{} `yaml:"input_data" json:"input_data"`
	// Dependencies lists spec names that must complete first.
	Dependencies []string `yaml:"dependencies" json:"dependencies"`
}

// WorkflowTaskTracking records the submission state of one spec.
type WorkflowTaskTracking struct {
	// SpecName is the plan spec this entry tracks.
	SpecName string `json:"spec_name"`
	// TaskID is the network task ID once submitted.
	TaskID string `json:"task_id"`
	// Status mirrors the last observed task status, starting at "submitted".
	Status string `json:"status"`
	// SubmittedAt is when the task entered the network.
	SubmittedAt time.Time `json:"submitted_at"`
}

// Workflow is a coordinator-owned aggregate of related tasks.
// Workflows are retained for querying until process exit.
type Workflow struct {
	// ID is the unique workflow identifier.
	ID string `json:"workflow_id"`
	// Type names the plan that produced this workflow.
	Type string `json:"workflow_type"`
	// Specs is the ordered task plan.
	Specs []WorkflowTaskSpec `json:"specs"`
	// Status is the aggregate state.
	Status WorkflowStatus `json:"status"`
	// CreatedAt is when the coordinator accepted the workflow.
	CreatedAt time.Time `json:"created_at"`
	// Tasks maps submitted task IDs to tracking entries.
	Tasks map[string]*WorkflowTaskTracking `json:"tasks"`
	// Progress is the completed share of tasks, 0-100.
	Progress int `json:"progress"`
}

// NewWorkflow creates an active workflow for the given plan.
func NewWorkflow(id, workflowType string, specs []WorkflowTaskSpec) *Workflow {
	return &Workflow{
		ID:        id,
		Type:      workflowType,
		Specs:     specs,
		Status:    WorkflowStatusActive,
		CreatedAt: time.Now(),
		Tasks:     make(map[string]*WorkflowTaskTracking),
	}
}
