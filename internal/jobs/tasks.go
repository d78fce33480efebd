// Package jobs runs stock alerting in the background on asynq.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"medstore/m/domain"
)

const (
	// QueueDefault is the queue every stock task goes to.
	QueueDefault = "default"
	// TaskLowStockAlert reports one medicine at or below its minimum stock.
	TaskLowStockAlert = "inventory:low_stock_alert"
	// TaskStockScan sweeps the catalog for low and expiring medicines.
	TaskStockScan = "inventory:stock_scan"
)

// alertWindow suppresses repeat alerts for the same medicine and stock level.
const alertWindow = time.Hour

// LowStockPayload describes the medicine that crossed its threshold.
type LowStockPayload struct {
	MedicineID int64  `json:"medicine_id"`
	Name       string `json:"name"`
	Stock      int64  `json:"stock"`
	MinStock   int64  `json:"min_stock"`
}

// StockScanPayload carries scheduling metadata.
type StockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockTask constructs a low stock alert for med.
func NewLowStockTask(med domain.Medicine) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockPayload{
		MedicineID: med.ID,
		Name:       med.Name,
		Stock:      med.Stock,
		MinStock:   med.MinStock,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, body, asynq.Queue(QueueDefault), asynq.Unique(alertWindow)), nil
}

// NewStockScanTask constructs the periodic scan task.
func NewStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(StockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockScan, body, asynq.Queue(QueueDefault)), nil
}
