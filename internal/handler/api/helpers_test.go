//go:build unit

package api_test

import (
	"time"

	"flightshare/internal/domain/principal"
	reqdto "flightshare/internal/handler/dto/request"

	"github.com/gin-gonic/gin"
)

func init() {
	if err := reqdto.RegisterValidators(); err != nil {
		panic(err)
	}
}

// withPrincipal stands in for the principal middleware; *current is read per
// request so a suite can switch callers between subtests.
func withPrincipal(current *principal.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if *current != nil {
			c.Set("principal", *current)
		}
		c.Next()
	}
}

func guestPrincipal() principal.Principal {
	return principal.NewGuestTicket(time.Now(), 30*time.Minute)
}
