package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func strQueryPtr(c *gin.Context, key string) *string {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	return &raw
}

func uint64QueryPtr(c *gin.Context, key string) *uint64 {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseOrder accepts "column" or "column asc|desc" and whitelists columns to
// keep user input out of raw SQL order clauses.
func parseOrder(c *gin.Context, allowed map[string]bool) (string, *bool) {
	raw := strings.TrimSpace(c.Query("order_by"))
	if raw == "" {
		return "", nil
	}
	parts := strings.Fields(strings.ToLower(raw))
	if !allowed[parts[0]] {
		return "", nil
	}
	if len(parts) > 1 && parts[1] == "asc" {
		asc := true
		return parts[0], &asc
	}
	asc := false
	return parts[0], &asc
}
