// Package models defines the shared data model for the agent coordination
// subsystem: tasks, messages, agent records, capabilities, and workflows.
package models

import "time"

// TaskType identifies the kind of work a task represents.
type TaskType string

const (
	// TaskTypeMarketAnalysis analyzes market conditions for a product.
	TaskTypeMarketAnalysis TaskType = "market_analysis"
	// TaskTypeStrategyGeneration produces a full sales strategy.
	TaskTypeStrategyGeneration TaskType = "strategy_generation"
	// TaskTypePerformanceAnalysis evaluates strategy performance metrics.
	TaskTypePerformanceAnalysis TaskType = "performance_analysis"
	// TaskTypeCompetitorResearch researches competing products.
	TaskTypeCompetitorResearch TaskType = "competitor_research"
	// TaskTypePriceOptimization computes pricing recommendations.
	TaskTypePriceOptimization TaskType = "price_optimization"
	// TaskTypeCustomerSegmentation identifies customer segments.
	TaskTypeCustomerSegmentation TaskType = "customer_segmentation"
	// TaskTypeCoordination is a coordinator-level task (workflow
	// orchestration, monitoring, resource allocation).
	TaskTypeCoordination TaskType = "coordination"
)

// AllTaskTypes lists every known task type.
// Used by stats aggregation and validation.
var AllTaskTypes = []TaskType{
	TaskTypeMarketAnalysis,
	TaskTypeStrategyGeneration,
	TaskTypePerformanceAnalysis,
	TaskTypeCompetitorResearch,
	TaskTypePriceOptimization,
	TaskTypeCustomerSegmentation,
	TaskTypeCoordination,
}

// Valid returns true if the task type is a known value.
func (t TaskType) Valid() bool {
	for _, known := range AllTaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TaskStatus represents the current state of a task.
//
// The lifecycle is:
//
//	pending -> assigned -> in_progress -> {completed | failed | cancelled}
//
// assigned is transient: it is set the instant a task-assign message is
// sent, and in_progress is set when the agent confirms acceptance.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is waiting in the queue.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusAssigned indicates an assignment message has been sent.
	TaskStatusAssigned TaskStatus = "assigned"
	// TaskStatusInProgress indicates an agent accepted and is executing.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task execution failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled before completion.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// AllTaskStatuses lists every known task status.
var AllTaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusAssigned,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusFailed,
	TaskStatusCancelled,
}

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusAssigned, TaskStatusInProgress,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transitions are allowed.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Task is a unit of work flowing through the task network.
// The network owns all lifecycle transitions; the executing agent only
// writes output via the network's CompleteTask/FailTask operations.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Type identifies the kind of work.
	Type TaskType `json:"task_type"`
	// RequesterID is the agent that submitted the task.
	RequesterID string `json:"requester_id"`
	// AssigneeID is the agent the task was assigned to, if any.
	AssigneeID string `json:"assignee_id,omitempty"`
	// Priority orders the pending queue; higher values are more urgent.
	Priority int `json:"priority"`
	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`
	// InputData carries the task parameters.
	InputData map[string]interface{} `json:"input_data,omitempty"`
	// OutputData carries the execution result once completed.
	OutputData map[string]interface{} `json:"output_data,omitempty"`
	// CreatedAt is when the task was submitted.
	CreatedAt time.Time `json:"created_at"`
	// AssignedAt is when an assignee was recorded.
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
	// CompletedAt is when the task reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Deadline is informational; the network does not auto-cancel on expiry.
	Deadline *time.Time `json:"deadline,omitempty"`
	// Dependencies lists task IDs that must complete before this task.
	// Ordering is enforced by the workflow layer, not the scheduler.
	Dependencies []string `json:"dependencies,omitempty"`
	// Metadata carries auxiliary data such as failure reasons.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewTask creates a task in the pending state with initialized maps.
func NewTask(id string, taskType TaskType, requesterID string) *Task {
	return &Task{
		ID:          id,
		Type:        taskType,
		RequesterID: requesterID,
		Priority:    int(PriorityLow),
		Status:      TaskStatusPending,
		InputData:   make(map[string]interface{}),
		Metadata:    make(map[string]interface{}),
		CreatedAt:   time.Now(),
	}
}
