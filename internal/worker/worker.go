package worker

import (
	"context"
	"log"

	"cylinder-service/internal/broker"
	"cylinder-service/internal/service"
)

// MovementWorker applies inventory movements for delivered orders. It
// consumes order events and hands OrderDelivered to the movement
// applier.
type MovementWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewMovementWorker creates a new movement worker
func NewMovementWorker(consumer *broker.Consumer, applier *service.MovementApplier) *MovementWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderDelivered(applier.HandleOrderDelivered)

	return &MovementWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *MovementWorker) Start(ctx context.Context) error {
	log.Println("Starting movement worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *MovementWorker) Stop() error {
	log.Println("Stopping movement worker...")
	return w.consumer.Close()
}

// TransferWorker reserves source-warehouse stock for approved
// transfers.
type TransferWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewTransferWorker creates a new transfer worker
func NewTransferWorker(consumer *broker.Consumer, transferService *service.TransferService) *TransferWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnTransferApproved(transferService.HandleTransferApproved)

	return &TransferWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the transfer worker
func (tw *TransferWorker) Start(ctx context.Context) error {
	log.Println("Starting transfer worker...")
	return tw.consumer.StartConsuming(ctx, tw.eventHandler.HandleMessage)
}

// Stop stops the transfer worker
func (tw *TransferWorker) Stop() error {
	log.Println("Stopping transfer worker...")
	return tw.consumer.Close()
}
