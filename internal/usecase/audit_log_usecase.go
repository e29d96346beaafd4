package usecase

import (
	"context"

	"healthcare-booking-service/internal/converter"
	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/domain/repository"
	"healthcare-booking-service/pkg/apperror"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAuditLogNotFound = apperror.New(apperror.ErrNotFound, "audit log not found")
	ErrAdminOnly        = apperror.New(apperror.ErrForbidden, "only admins can read audit logs")
)

type AuditLogUsecase interface {
	ListAuditLogs(ctx context.Context, action string, page, limit int) (*dto.AuditLogListResponse, error)
	GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error)
}

type auditLogUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	auditLogRepo repository.AuditLogRepository
}

func NewAuditLogUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	auditLogRepo repository.AuditLogRepository,
) AuditLogUsecase {
	return &auditLogUsecase{
		db:           db,
		log:          log,
		auditLogRepo: auditLogRepo,
	}
}

func (u *auditLogUsecase) ListAuditLogs(ctx context.Context, action string, page, limit int) (*dto.AuditLogListResponse, error) {
	if err := u.requireAdmin(ctx); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	logs, total, err := u.auditLogRepo.FindAll(u.db.WithContext(ctx), action, limit, (page-1)*limit)
	if err != nil {
		u.log.Warnf("Failed to find audit logs: %+v", err)
		return nil, err
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: total,
	}, nil
}

func (u *auditLogUsecase) GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error) {
	if err := u.requireAdmin(ctx); err != nil {
		return nil, err
	}

	auditLog, err := u.auditLogRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find audit log %d: %+v", id, err)
		return nil, err
	}
	if auditLog == nil {
		return nil, ErrAuditLogNotFound
	}

	return converter.AuditLogToResponse(auditLog), nil
}

func (u *auditLogUsecase) requireAdmin(ctx context.Context) error {
	caller, err := actorFromContext(ctx)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}
