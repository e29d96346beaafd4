package handler

import (
	"net/http"

	"healthcare-booking-service/internal/delivery/dto"
	"healthcare-booking-service/internal/usecase"
	"healthcare-booking-service/pkg/response"
	"healthcare-booking-service/pkg/validator"
)

type WalletHandler struct {
	walletUsecase usecase.WalletUsecase
	validator     *validator.CustomValidator
}

func NewWalletHandler(walletUsecase usecase.WalletUsecase, validator *validator.CustomValidator) *WalletHandler {
	return &WalletHandler{
		walletUsecase: walletUsecase,
		validator:     validator,
	}
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidVar(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	wallet, err := h.walletUsecase.GetWallet(r.Context(), doctorID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Wallet retrieved successfully", wallet)
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidVar(w, r, "userId", "user")
	if !ok {
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	transactions, err := h.walletUsecase.ListTransactions(r.Context(), userID, page, limit)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Paginated(w, "Transactions retrieved successfully", transactions, page, limit, transactions.Total)
}

func (h *WalletHandler) ListUpcomingEarnings(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := uuidVar(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	earnings, err := h.walletUsecase.ListUpcomingEarnings(r.Context(), doctorID, r.URL.Query().Get("status"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Upcoming earnings retrieved successfully", earnings)
}

func (h *WalletHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawalRequest
	if !decodeRequest(w, r, h.validator, &req) {
		return
	}

	request, err := h.walletUsecase.RequestWithdrawal(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusCreated, "Withdrawal requested successfully", request)
}

func (h *WalletHandler) ProcessWithdrawal(w http.ResponseWriter, r *http.Request) {
	requestID, ok := uuidVar(w, r, "id", "withdrawal")
	if !ok {
		return
	}

	result, err := h.walletUsecase.ProcessWithdrawal(r.Context(), requestID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Withdrawal processed successfully", result)
}
