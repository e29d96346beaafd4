package middleware

import (
	"net/http"

	"healthcare-booking-service/internal/domain/entity"
	"healthcare-booking-service/pkg/response"
)

// RequireRole admits callers whose role, set by Authenticate, is one of roleIDs.
func RequireRole(roleIDs ...int) func(http.Handler) http.Handler {
	allowed := make(map[int]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		allowed[id] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roleID, ok := GetRoleIDFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Role information not found")
				return
			}
			if _, ok := allowed[roleID]; !ok {
				name := entity.RoleName(roleID)
				if name == "" {
					name = "unknown"
				}
				response.Forbidden(w, "Role "+name+" may not access this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDAdmin)(next)
}

// RequireDoctor guards doctor self-service such as withdrawals.
func RequireDoctor(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDDoctor)(next)
}

// RequirePatient guards booking and reviews.
func RequirePatient(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDPatient)(next)
}

func RequireAdminOrDoctor(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDAdmin, entity.RoleIDDoctor)(next)
}

// RequireAnyRole admits every known role. Ownership is checked by the use case.
func RequireAnyRole(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDAdmin, entity.RoleIDDoctor, entity.RoleIDPatient)(next)
}
