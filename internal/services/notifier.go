package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/bookletflow/internal/gcp"
	"github.com/Lllllllleong/bookletflow/internal/models"
)

// WorkflowNotifier hands a finished booklet to a Cloud Workflow.
type WorkflowNotifier struct {
	parent          string
	createExecution func(ctx context.Context, req *executionspb.CreateExecutionRequest) (*executionspb.Execution, error)
}

func NewWorkflowNotifier(client *executions.Client, projectID, location, workflowID string) *WorkflowNotifier {
	return &WorkflowNotifier{
		parent: gcp.WorkflowParent(projectID, location, workflowID),
		createExecution: func(ctx context.Context, req *executionspb.CreateExecutionRequest) (*executionspb.Execution, error) {
			return client.CreateExecution(ctx, req)
		},
	}
}

// Notify starts one workflow execution with the event as its argument.
func (n *WorkflowNotifier) Notify(ctx context.Context, event models.ConverterEvent) error {
	payloadBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: n.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	exec, err := n.createExecution(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	slog.Info("Workflow execution started.", "documentId", event.DocumentID, "execution", exec.GetName())
	return nil
}
