package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrScanNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "scan")
}

func NewErrFindingNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "finding")
}

func NewErrRuleSourceNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "rule source")
}

func NewErrArtifactNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "artifact")
}

func NewErrReportNotFound(scanID uuid.UUID) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("no report exists for scan %s", scanID)}
}

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(message string) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf("bad request: %s", message)}
}

type ErrScanNotCancellable struct {
	error
}

func NewErrScanNotCancellable(id uuid.UUID, status string) *ErrScanNotCancellable {
	return &ErrScanNotCancellable{fmt.Errorf("scan %s is already %s and cannot be cancelled", id, status)}
}

type ErrFindingNotReviewable struct {
	error
}

func NewErrFindingNotReviewable(id uuid.UUID, status string) *ErrFindingNotReviewable {
	return &ErrFindingNotReviewable{fmt.Errorf("finding %s is %s and not reviewable", id, status)}
}
