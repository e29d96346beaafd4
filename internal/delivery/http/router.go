package http

import (
	"net/http"

	"healthcare-booking-service/internal/delivery/http/handler"
	"healthcare-booking-service/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router              *mux.Router
	availabilityHandler *handler.AvailabilityHandler
	appointmentHandler  *handler.AppointmentHandler
	paymentHandler      *handler.PaymentHandler
	walletHandler       *handler.WalletHandler
	auditLogHandler     *handler.AuditLogHandler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
}

func NewRouter(
	availabilityHandler *handler.AvailabilityHandler,
	appointmentHandler *handler.AppointmentHandler,
	paymentHandler *handler.PaymentHandler,
	walletHandler *handler.WalletHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		availabilityHandler: availabilityHandler,
		appointmentHandler:  appointmentHandler,
		paymentHandler:      paymentHandler,
		walletHandler:       walletHandler,
		auditLogHandler:     auditLogHandler,
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Slot browsing (public)
	api.HandleFunc("/doctors/{doctorId}/slots", r.availabilityHandler.GetAvailableSlots).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{doctorId}/slots/check", r.availabilityHandler.CheckSlot).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{doctorId}/availability", r.availabilityHandler.GetAvailability).Methods(http.MethodGet)

	// Availability management (doctor owner or admin)
	api.Handle("/doctors/{doctorId}/availability", r.protect(r.availabilityHandler.UpsertAvailability, middleware.RequireAdminOrDoctor)).Methods(http.MethodPut)
	api.Handle("/doctors/{doctorId}/availability/overrides", r.protect(r.availabilityHandler.ApplyOverride, middleware.RequireAdminOrDoctor)).Methods(http.MethodPost)
	api.Handle("/doctors/{doctorId}/availability/partial-overrides", r.protect(r.availabilityHandler.ApplyPartialOverride, middleware.RequireAdminOrDoctor)).Methods(http.MethodPost)
	api.Handle("/doctors/{doctorId}/availability/overrides/{date}", r.protect(r.availabilityHandler.RemoveOverride, middleware.RequireAdminOrDoctor)).Methods(http.MethodDelete)

	// Doctor calendar and money
	api.Handle("/doctors/{doctorId}/appointments", r.protect(r.appointmentHandler.ListDoctorAppointments, middleware.RequireAdminOrDoctor)).Methods(http.MethodGet)
	api.Handle("/doctors/{doctorId}/wallet", r.protect(r.walletHandler.GetWallet, middleware.RequireAdminOrDoctor)).Methods(http.MethodGet)
	api.Handle("/doctors/{doctorId}/earnings", r.protect(r.walletHandler.ListUpcomingEarnings, middleware.RequireAdminOrDoctor)).Methods(http.MethodGet)

	// Appointments
	api.Handle("/appointments", r.protect(r.appointmentHandler.BookAppointment, middleware.RequirePatient)).Methods(http.MethodPost)
	api.Handle("/appointments", r.protect(r.appointmentHandler.ListMyAppointments, middleware.RequireAnyRole)).Methods(http.MethodGet)
	api.Handle("/appointments/{id}", r.protect(r.appointmentHandler.GetAppointment, middleware.RequireAnyRole)).Methods(http.MethodGet)
	api.Handle("/appointments/{id}/reschedule", r.protect(r.appointmentHandler.RescheduleAppointment, middleware.RequireAnyRole)).Methods(http.MethodPost)
	api.Handle("/appointments/{id}/status", r.protect(r.appointmentHandler.UpdateStatus, middleware.RequireAnyRole)).Methods(http.MethodPatch)
	api.Handle("/appointments/{id}/review", r.protect(r.appointmentHandler.AddReview, middleware.RequirePatient)).Methods(http.MethodPost)

	// Payments
	api.Handle("/payments", r.protect(r.paymentHandler.CreatePayment, middleware.RequireAnyRole)).Methods(http.MethodPost)
	api.Handle("/payments/{id}", r.protect(r.paymentHandler.GetPayment, middleware.RequireAnyRole)).Methods(http.MethodGet)
	api.Handle("/payments/{id}/authorize", r.protect(r.paymentHandler.AuthorizePayment, middleware.RequireAdmin)).Methods(http.MethodPost)
	api.Handle("/payments/{id}/capture", r.protect(r.paymentHandler.CapturePayment, middleware.RequireAdmin)).Methods(http.MethodPost)
	api.Handle("/payments/{id}/fail", r.protect(r.paymentHandler.FailPayment, middleware.RequireAnyRole)).Methods(http.MethodPost)
	api.Handle("/payments/{id}/process", r.protect(r.paymentHandler.ProcessPayment, middleware.RequireAdminOrDoctor)).Methods(http.MethodPost)
	api.Handle("/payments/{id}/refund", r.protect(r.paymentHandler.RefundPayment, middleware.RequireAdminOrDoctor)).Methods(http.MethodPost)

	// Wallet ledger
	api.Handle("/users/{userId}/transactions", r.protect(r.walletHandler.ListTransactions, middleware.RequireAnyRole)).Methods(http.MethodGet)
	api.Handle("/wallet/withdrawals", r.protect(r.walletHandler.RequestWithdrawal, middleware.RequireDoctor)).Methods(http.MethodPost)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/withdrawals/{id}/process", r.walletHandler.ProcessWithdrawal).Methods(http.MethodPost)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.ListAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

// protect authenticates the caller and then applies the role check.
func (r *Router) protect(h http.HandlerFunc, role func(http.Handler) http.Handler) http.Handler {
	return r.authMiddleware.Authenticate(role(h))
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
