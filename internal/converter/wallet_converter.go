package converter

import (
	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/domain/entity"
)

// WalletToResponse converts a Wallet entity to WalletResponse DTO
func WalletToResponse(wallet *entity.Wallet) *dto.WalletResponse {
	if wallet == nil {
		return nil
	}

	return &dto.WalletResponse{
		ID:               wallet.ID,
		DoctorID:         wallet.DoctorID,
		CurrentBalance:   wallet.CurrentBalance,
		TotalEarned:      wallet.TotalEarned,
		TotalWithdrawn:   wallet.TotalWithdrawn,
		TotalSpent:       wallet.TotalSpent,
		CommissionRate:   wallet.CommissionRate,
		LastPaymentAt:    wallet.LastPaymentAt,
		LastWithdrawalAt: wallet.LastWithdrawalAt,
	}
}

// TransactionToResponse converts a Transaction entity to TransactionResponse DTO
func TransactionToResponse(transaction *entity.Transaction) *dto.TransactionResponse {
	if transaction == nil {
		return nil
	}

	return &dto.TransactionResponse{
		ID:            transaction.ID,
		UserID:        transaction.UserID,
		Type:          string(transaction.Type),
		Amount:        transaction.Amount,
		ReferenceID:   transaction.ReferenceID,
		ReferenceType: transaction.ReferenceType,
		Status:        string(transaction.Status),
		Method:        transaction.Method,
		Description:   transaction.Description,
		CreatedAt:     transaction.CreatedAt,
	}
}

// TransactionsToResponses converts a slice of Transaction entities to slice of TransactionResponse DTOs
func TransactionsToResponses(transactions []entity.Transaction) []dto.TransactionResponse {
	responses := make([]dto.TransactionResponse, len(transactions))
	for i := range transactions {
		responses[i] = *TransactionToResponse(&transactions[i])
	}
	return responses
}
