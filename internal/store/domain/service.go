package domain

import (
	"context"
	"errors"
	"time"

	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	customerdomain "github.com/smallbiznis/milestone/internal/customer/domain"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	userdomain "github.com/smallbiznis/milestone/internal/user/domain"
)

// SnapshotVersion is the backup format written by FetchAll.
const SnapshotVersion = 1

// BackupUser is a user as it travels in a backup. Hashes are never exported;
// Password is only read on restore.
type BackupUser struct {
	userdomain.User
	Password string `json:"password,omitempty"`
}

// Snapshot is the full content of the database.
type Snapshot struct {
	Version    int                       `json:"version"`
	ExportedAt time.Time                 `json:"exported_at"`
	Customers  []customerdomain.Customer `json:"customers"`
	Projects   []projectdomain.Project   `json:"projects"`
	Contracts  []contractdomain.Contract `json:"contracts"`
	Payments   []paymentdomain.Payment   `json:"payments"`
	Users      []BackupUser              `json:"users"`
}

// RestoreResult counts what a restore kept and what it dropped as orphans.
type RestoreResult struct {
	Customers        int  `json:"customers"`
	Projects         int  `json:"projects"`
	Contracts        int  `json:"contracts"`
	Payments         int  `json:"payments"`
	Users            int  `json:"users"`
	DroppedContracts int  `json:"dropped_contracts"`
	DroppedPayments  int  `json:"dropped_payments"`
	UsersKept        bool `json:"users_kept"`
}

type Service interface {
	FetchAll(ctx context.Context) (Snapshot, error)
	// ReplaceAll swaps the whole dataset for snap in one transaction.
	ReplaceAll(ctx context.Context, snap Snapshot) (RestoreResult, error)
}

var (
	ErrUnsupportedVersion = errors.New("unsupported_snapshot_version")
	ErrInvalidSnapshot    = errors.New("invalid_snapshot")
)
