package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-canteen/models"
	"campus-canteen/stats"
)

// ShopReport is a shop's summary with its display name.
type ShopReport struct {
	ShopName string `json:"shop_name"`
	stats.Summary
}

// GetStaffStatsHandler serves the dashboard counters for the staff member's shop.
func GetStaffStatsHandler(c *gin.Context) {
	shopID, ok := staffShopID(c)
	if !ok {
		return
	}

	orders, err := Store.Snapshot(c.Request.Context(), shopID)
	if err != nil {
		respondError(c, err)
		return
	}
	summary := stats.Summarize(orders, Now())
	summary.ShopID = shopID
	c.JSON(http.StatusOK, summary)
}

// GetShopReportsHandler reports every shop, including those without orders.
func GetShopReportsHandler(c *gin.Context) {
	shops, err := Store.ListShops(c.Request.Context(), "")
	if err != nil {
		respondError(c, err)
		return
	}
	orders, err := Store.Snapshot(c.Request.Context(), 0)
	if err != nil {
		respondError(c, err)
		return
	}

	byShop := stats.ByShop(orders, Now())
	reports := make([]ShopReport, 0, len(shops))
	for _, shop := range shops {
		summary, ok := byShop[shop.ID]
		if !ok {
			summary = stats.Summarize(nil, Now())
			summary.ShopID = shop.ID
		}
		reports = append(reports, ShopReport{ShopName: shop.Name, Summary: summary})
	}
	c.JSON(http.StatusOK, gin.H{"shops": reports, "overall": stats.Summarize(orders, Now())})
}

func GetShopReportHandler(c *gin.Context) {
	shopID, ok := uintParam(c, "shop_id")
	if !ok {
		return
	}
	shop, err := Store.GetShop(c.Request.Context(), shopID)
	if err != nil {
		respondError(c, err)
		return
	}
	orders, err := Store.Snapshot(c.Request.Context(), shopID)
	if err != nil {
		respondError(c, err)
		return
	}

	summary := stats.Summarize(orders, Now())
	summary.ShopID = shop.ID
	c.JSON(http.StatusOK, ShopReport{ShopName: shop.Name, Summary: summary})
}

// GetAdminOverviewHandler gives the superadmin a campus-wide view.
func GetAdminOverviewHandler(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := Store.ListUsers(ctx, "")
	if err != nil {
		respondError(c, err)
		return
	}
	roles := make(map[models.Role]int)
	pending := 0
	for _, u := range users {
		roles[u.Role]++
		if u.Role == models.RoleStudent && u.ApprovalStatus == models.ApprovalPending {
			pending++
		}
	}

	shops, err := Store.ListShops(ctx, "")
	if err != nil {
		respondError(c, err)
		return
	}
	orders, err := Store.Snapshot(ctx, 0)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users_by_role":    roles,
		"pending_students": pending,
		"shops":            len(shops),
		"orders":           stats.Summarize(orders, Now()),
	})
}
