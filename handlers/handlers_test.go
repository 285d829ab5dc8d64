package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"campus-canteen/models"
	"campus-canteen/store"
	"campus-canteen/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.ConfigureJWT("handlers-test-secret", time.Hour)
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(m.Run())
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	store  *store.Store
	users  int
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard, TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.New(db, nil, log)
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	Init(s, log)
	Now = time.Now
	return &testAPI{t: t, router: NewRouter(CORSConfig(true, nil)), store: s}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

func (a *testAPI) seedShop(name string) *models.Shop {
	a.t.Helper()
	shop := &models.Shop{Name: name, IsOpen: true}
	if err := a.store.CreateShop(context.Background(), shop); err != nil {
		a.t.Fatalf("create shop: %v", err)
	}
	return shop
}

func (a *testAPI) seedFood(shopID uint, name string, price int64) *models.FoodItem {
	a.t.Helper()
	item := &models.FoodItem{ShopID: shopID, Name: name, Category: "meals", Price: decimal.NewFromInt(price), IsAvailable: true}
	if err := a.store.CreateFoodItem(context.Background(), item); err != nil {
		a.t.Fatalf("create food item: %v", err)
	}
	return item
}

// tokenFor creates an account and signs a token for it directly.
func (a *testAPI) tokenFor(role models.Role, shopID *uint) (string, *models.User) {
	a.t.Helper()
	a.users++
	user, err := a.store.CreateUser(context.Background(), store.NewUser{
		Name:     string(role) + " user",
		Email:    fmt.Sprintf("%s-%d@campus.test", role, a.users),
		Password: "correct-horse",
		Role:     role,
		ShopID:   shopID,
	})
	if err != nil {
		a.t.Fatalf("create %s: %v", role, err)
	}
	var sid uint
	if shopID != nil {
		sid = *shopID
	}
	token, err := utils.GenerateToken(user.ID, string(user.Role), sid)
	if err != nil {
		a.t.Fatal(err)
	}
	return token, user
}

// approvedStudent signs a student up, approves them and returns their token.
func (a *testAPI) approvedStudent() string {
	a.t.Helper()
	_, student := a.tokenFor(models.RoleStudent, nil)
	if _, err := a.store.ReviewStudent(context.Background(), student.ID, true); err != nil {
		a.t.Fatal(err)
	}
	token, err := utils.GenerateToken(student.ID, string(models.RoleStudent), 0)
	if err != nil {
		a.t.Fatal(err)
	}
	return token
}

type orderResponse struct {
	Order          models.Order       `json:"order"`
	PreviousStatus models.OrderStatus `json:"previous_status"`
}

type scanResponse struct {
	Outcome  string             `json:"outcome"`
	Order    *models.Order      `json:"order"`
	Previous models.OrderStatus `json:"previous_status"`
}

func TestRegisterApproveLogin(t *testing.T) {
	api := newTestAPI(t)
	adminToken, _ := api.tokenFor(models.RoleSuperadmin, nil)

	w := api.do(http.MethodPost, "/auth/register", "", RegisterRequest{
		Name: "Asha", Email: "Asha@Campus.test", Password: "s3cret-pass",
	})
	expectStatus(t, w, http.StatusCreated)
	var registered struct {
		UserID         uint   `json:"user_id"`
		ApprovalStatus string `json:"approval_status"`
	}
	decodeBody(t, w, &registered)
	if registered.ApprovalStatus != "pending" {
		t.Fatalf("approval_status = %q", registered.ApprovalStatus)
	}

	login := LoginRequest{Email: "asha@campus.test", Password: "s3cret-pass"}
	expectStatus(t, api.do(http.MethodPost, "/auth/login", "", login), http.StatusForbidden)

	w = api.do(http.MethodGet, "/admin/students/pending", adminToken, nil)
	expectStatus(t, w, http.StatusOK)
	var pending struct {
		Students []models.User `json:"students"`
	}
	decodeBody(t, w, &pending)
	if len(pending.Students) != 1 || pending.Students[0].ID != registered.UserID {
		t.Fatalf("pending students = %+v", pending.Students)
	}

	path := fmt.Sprintf("/admin/students/%d/approve", registered.UserID)
	expectStatus(t, api.do(http.MethodPost, path, adminToken, nil), http.StatusOK)
	expectStatus(t, api.do(http.MethodPost, path, adminToken, nil), http.StatusConflict)

	w = api.do(http.MethodPost, "/auth/login", "", login)
	expectStatus(t, w, http.StatusOK)
	var loggedIn struct {
		Token string `json:"token"`
	}
	decodeBody(t, w, &loggedIn)
	expectStatus(t, api.do(http.MethodGet, "/auth/me", loggedIn.Token, nil), http.StatusOK)

	bad := LoginRequest{Email: "asha@campus.test", Password: "wrong-pass"}
	expectStatus(t, api.do(http.MethodPost, "/auth/login", "", bad), http.StatusUnauthorized)
}

func TestRoleGuards(t *testing.T) {
	api := newTestAPI(t)
	shop := api.seedShop("North Canteen")
	studentToken := api.approvedStudent()
	captainToken, _ := api.tokenFor(models.RoleCaptain, &shop.ID)
	accountantToken, _ := api.tokenFor(models.RoleAccountant, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/student/orders", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/student/orders", "not-a-jwt", http.StatusUnauthorized},
		{"student on staff routes", http.MethodGet, "/staff/orders", studentToken, http.StatusForbidden},
		{"captain on student routes", http.MethodGet, "/student/orders", captainToken, http.StatusForbidden},
		{"captain toggling shop", http.MethodPut, "/staff/shop", captainToken, http.StatusForbidden},
		{"captain on reports", http.MethodGet, "/reports/shops", captainToken, http.StatusForbidden},
		{"accountant on admin", http.MethodGet, "/admin/overview", accountantToken, http.StatusForbidden},
		{"accountant on reports", http.MethodGet, "/reports/shops", accountantToken, http.StatusOK},
		{"public menu", http.MethodGet, fmt.Sprintf("/public/shops/%d/menu", shop.ID), "", http.StatusOK},
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, api.do(tt.method, tt.path, tt.token, nil), tt.want)
		})
	}
}

func TestOrderPickupFlow(t *testing.T) {
	api := newTestAPI(t)
	shop := api.seedShop("Main Canteen")
	biryani := api.seedFood(shop.ID, "Biryani", 120)
	tea := api.seedFood(shop.ID, "Tea", 15)
	studentToken := api.approvedStudent()
	captainToken, captain := api.tokenFor(models.RoleCaptain, &shop.ID)

	w := api.do(http.MethodPost, "/student/orders", studentToken, PlaceOrderRequest{
		ShopID: shop.ID,
		Items: []OrderItemRequest{
			{FoodItemID: biryani.ID, Quantity: 1},
			{FoodItemID: tea.ID, Quantity: 2},
		},
	})
	expectStatus(t, w, http.StatusCreated)
	var order models.Order
	decodeBody(t, w, &order)
	if order.Status != models.OrderStatusPending || !order.Total.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("placed order = %s total %s", order.Status, order.Total)
	}
	if len(order.PickupToken) != 4 {
		t.Fatalf("pickup token = %q", order.PickupToken)
	}

	// A scan before the order is ready changes nothing.
	w = api.do(http.MethodGet, "/student/orders/"+order.ID+"/pickup", studentToken, nil)
	expectStatus(t, w, http.StatusOK)
	var qr struct {
		QRText string `json:"qr_text"`
	}
	decodeBody(t, w, &qr)

	w = api.do(http.MethodPost, "/staff/scan", captainToken, ScanRequest{Payload: qr.QRText})
	expectStatus(t, w, http.StatusOK)
	var scan scanResponse
	decodeBody(t, w, &scan)
	if scan.Outcome != "not_ready" || scan.Order.Status != models.OrderStatusPending {
		t.Fatalf("early scan = %+v", scan)
	}

	for _, next := range []models.OrderStatus{models.OrderStatusPreparing, models.OrderStatusReady} {
		w = api.do(http.MethodPut, "/staff/orders/"+order.ID+"/status", captainToken, UpdateOrderStatusRequest{Status: next})
		expectStatus(t, w, http.StatusOK)
		var res orderResponse
		decodeBody(t, w, &res)
		if res.Order.Status != next {
			t.Fatalf("status after update = %s, want %s", res.Order.Status, next)
		}
	}

	w = api.do(http.MethodGet, "/staff/stats", captainToken, nil)
	expectStatus(t, w, http.StatusOK)
	var before struct {
		Counts map[models.OrderStatus]int `json:"counts"`
	}
	decodeBody(t, w, &before)
	if before.Counts[models.OrderStatusReady] != 1 || before.Counts[models.OrderStatusCompleted] != 0 {
		t.Fatalf("counts before pickup = %v", before.Counts)
	}

	w = api.do(http.MethodPost, "/staff/scan", captainToken, ScanRequest{Payload: qr.QRText})
	expectStatus(t, w, http.StatusOK)
	scan = scanResponse{}
	decodeBody(t, w, &scan)
	if scan.Outcome != "completed" || scan.Previous != models.OrderStatusReady {
		t.Fatalf("pickup scan = %+v", scan)
	}

	w = api.do(http.MethodGet, "/staff/stats", captainToken, nil)
	expectStatus(t, w, http.StatusOK)
	var after struct {
		Counts       map[models.OrderStatus]int `json:"counts"`
		TodayRevenue decimal.Decimal            `json:"today_revenue"`
	}
	decodeBody(t, w, &after)
	if after.Counts[models.OrderStatusReady] != 0 || after.Counts[models.OrderStatusCompleted] != 1 {
		t.Fatalf("counts after pickup = %v", after.Counts)
	}
	if !after.TodayRevenue.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("today revenue = %s", after.TodayRevenue)
	}

	// Scanning the same code again is reported, not applied.
	w = api.do(http.MethodPost, "/staff/scan", captainToken, ScanRequest{Payload: qr.QRText})
	scan = scanResponse{}
	decodeBody(t, w, &scan)
	if scan.Outcome != "not_ready" || scan.Order.Status != models.OrderStatusCompleted {
		t.Fatalf("repeat scan = %+v", scan)
	}

	w = api.do(http.MethodGet, "/staff/orders/"+order.ID, captainToken, nil)
	expectStatus(t, w, http.StatusOK)
	var detail struct {
		History []models.OrderStatusChange `json:"history"`
	}
	decodeBody(t, w, &detail)
	if len(detail.History) != 3 {
		t.Fatalf("history has %d entries, want 3", len(detail.History))
	}
	last := detail.History[2]
	if last.From != models.OrderStatusReady || last.To != models.OrderStatusCompleted || last.ChangedBy != captain.ID {
		t.Fatalf("last change = %+v", last)
	}
}

func TestScanIgnoresUnreadableCodes(t *testing.T) {
	api := newTestAPI(t)
	shop := api.seedShop("Library Cafe")
	captainToken, _ := api.tokenFor(models.RoleCaptain, &shop.ID)

	for _, raw := range []string{"", "hello", `{"total": 10}`, `[1,2,3]`} {
		w := api.do(http.MethodPost, "/staff/scan", captainToken, ScanRequest{Payload: raw})
		expectStatus(t, w, http.StatusOK)
		var scan scanResponse
		decodeBody(t, w, &scan)
		if scan.Outcome != "invalid_payload" {
			t.Errorf("scan %q outcome = %s", raw, scan.Outcome)
		}
	}
}

func TestStaffUpdateRejectsBadTransitions(t *testing.T) {
	api := newTestAPI(t)
	shop := api.seedShop("Main Canteen")
	other := api.seedShop("Annex")
	dosa := api.seedFood(shop.ID, "Dosa", 40)
	studentToken := api.approvedStudent()
	captainToken, _ := api.tokenFor(models.RoleCaptain, &shop.ID)
	ownerToken, _ := api.tokenFor(models.RoleOwner, &other.ID)

	w := api.do(http.MethodPost, "/student/orders", studentToken, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{FoodItemID: dosa.ID, Quantity: 1}},
	})
	expectStatus(t, w, http.StatusCreated)
	var order models.Order
	decodeBody(t, w, &order)
	path := "/staff/orders/" + order.ID + "/status"

	expectStatus(t, api.do(http.MethodPut, path, captainToken, UpdateOrderStatusRequest{Status: "teleported"}), http.StatusBadRequest)
	expectStatus(t, api.do(http.MethodPut, path, captainToken, UpdateOrderStatusRequest{Status: models.OrderStatusCompleted}), http.StatusConflict)
	expectStatus(t, api.do(http.MethodPut, path, ownerToken, UpdateOrderStatusRequest{Status: models.OrderStatusPreparing}), http.StatusNotFound)
	expectStatus(t, api.do(http.MethodGet, "/staff/orders/"+order.ID, ownerToken, nil), http.StatusNotFound)

	got, err := api.store.GetOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.OrderStatusPending {
		t.Fatalf("status = %s after rejected updates", got.Status)
	}
}

func TestStudentCancel(t *testing.T) {
	api := newTestAPI(t)
	shop := api.seedShop("Main Canteen")
	vada := api.seedFood(shop.ID, "Vada", 20)
	studentToken := api.approvedStudent()
	otherStudent := api.approvedStudent()
	captainToken, _ := api.tokenFor(models.RoleCaptain, &shop.ID)

	place := func() models.Order {
		w := api.do(http.MethodPost, "/student/orders", studentToken, PlaceOrderRequest{
			ShopID: shop.ID,
			Items:  []OrderItemRequest{{FoodItemID: vada.ID, Quantity: 3}},
		})
		expectStatus(t, w, http.StatusCreated)
		var o models.Order
		decodeBody(t, w, &o)
		return o
	}

	first := place()
	expectStatus(t, api.do(http.MethodPost, "/student/orders/"+first.ID+"/cancel", otherStudent, nil), http.StatusNotFound)

	w := api.do(http.MethodPost, "/student/orders/"+first.ID+"/cancel", studentToken, nil)
	expectStatus(t, w, http.StatusOK)
	var res orderResponse
	decodeBody(t, w, &res)
	if res.Order.Status != models.OrderStatusCancelled || res.PreviousStatus != models.OrderStatusPending {
		t.Fatalf("cancel = %+v", res)
	}
	expectStatus(t, api.do(http.MethodPost, "/student/orders/"+first.ID+"/cancel", studentToken, nil), http.StatusConflict)
	expectStatus(t, api.do(http.MethodGet, "/student/orders/"+first.ID+"/pickup", studentToken, nil), http.StatusConflict)

	second := place()
	expectStatus(t, api.do(http.MethodPut, "/staff/orders/"+second.ID+"/status", captainToken,
		UpdateOrderStatusRequest{Status: models.OrderStatusPreparing}), http.StatusOK)
	expectStatus(t, api.do(http.MethodPost, "/student/orders/"+second.ID+"/cancel", studentToken, nil), http.StatusConflict)

	w = api.do(http.MethodGet, "/student/orders?status=cancelled", studentToken, nil)
	expectStatus(t, w, http.StatusOK)
	var cancelled []models.Order
	decodeBody(t, w, &cancelled)
	if len(cancelled) != 1 || cancelled[0].ID != first.ID {
		t.Fatalf("cancelled orders = %+v", cancelled)
	}
	expectStatus(t, api.do(http.MethodGet, "/student/orders?status=lost", studentToken, nil), http.StatusBadRequest)
}

func TestClosedShopRejectsOrders(t *testing.T) {
	api := newTestAPI(t)
	shop := api.seedShop("Night Canteen")
	maggi := api.seedFood(shop.ID, "Maggi", 30)
	studentToken := api.approvedStudent()
	ownerToken, _ := api.tokenFor(models.RoleOwner, &shop.ID)

	closed := false
	expectStatus(t, api.do(http.MethodPut, "/staff/shop", ownerToken, SetShopOpenRequest{IsOpen: &closed}), http.StatusOK)

	w := api.do(http.MethodPost, "/student/orders", studentToken, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{FoodItemID: maggi.ID, Quantity: 1}},
	})
	expectStatus(t, w, http.StatusUnprocessableEntity)
}

func TestMenuManagement(t *testing.T) {
	api := newTestAPI(t)
	shop := api.seedShop("Main Canteen")
	ownerToken, _ := api.tokenFor(models.RoleOwner, &shop.ID)

	w := api.do(http.MethodPost, "/staff/menu", ownerToken, map[string]any{
		"name": "Paneer Roll", "category": "rolls", "price": 45,
	})
	expectStatus(t, w, http.StatusCreated)
	var item models.FoodItem
	decodeBody(t, w, &item)

	w = api.do(http.MethodPatch, fmt.Sprintf("/staff/menu/%d/offer", item.ID), ownerToken, nil)
	expectStatus(t, w, http.StatusOK)
	decodeBody(t, w, &item)
	if !item.IsOffer || item.OfferPrice == nil || !item.OfferPrice.Equal(decimal.NewFromInt(36)) {
		t.Fatalf("offer = %v %v", item.IsOffer, item.OfferPrice)
	}

	w = api.do(http.MethodPatch, fmt.Sprintf("/staff/menu/%d/availability", item.ID), ownerToken, nil)
	expectStatus(t, w, http.StatusOK)

	w = api.do(http.MethodGet, fmt.Sprintf("/public/shops/%d/menu", shop.ID), "", nil)
	expectStatus(t, w, http.StatusOK)
	var menu []models.FoodItem
	decodeBody(t, w, &menu)
	if len(menu) != 0 {
		t.Fatalf("public menu lists unavailable items: %+v", menu)
	}

	expectStatus(t, api.do(http.MethodPost, "/staff/menu", ownerToken, map[string]any{
		"name": "Free Lunch", "category": "meals", "price": 0,
	}), http.StatusBadRequest)
}

func TestShopReports(t *testing.T) {
	api := newTestAPI(t)
	canteen := api.seedShop("Main Canteen")
	api.seedShop("Empty Kiosk")
	idli := api.seedFood(canteen.ID, "Idli", 25)
	studentToken := api.approvedStudent()
	chairmanToken, _ := api.tokenFor(models.RoleChairman, nil)

	w := api.do(http.MethodPost, "/student/orders", studentToken, PlaceOrderRequest{
		ShopID: canteen.ID,
		Items:  []OrderItemRequest{{FoodItemID: idli.ID, Quantity: 2}},
	})
	expectStatus(t, w, http.StatusCreated)

	w = api.do(http.MethodGet, "/reports/shops", chairmanToken, nil)
	expectStatus(t, w, http.StatusOK)
	var reports struct {
		Shops []struct {
			ShopID       uint                       `json:"shop_id"`
			ShopName     string                     `json:"shop_name"`
			Counts       map[models.OrderStatus]int `json:"counts"`
			ActiveOrders int                        `json:"active_orders"`
		} `json:"shops"`
	}
	decodeBody(t, w, &reports)
	if len(reports.Shops) != 2 {
		t.Fatalf("got %d shop reports, want 2", len(reports.Shops))
	}
	for _, r := range reports.Shops {
		want := 0
		if r.ShopID == canteen.ID {
			want = 1
		}
		if r.ActiveOrders != want || r.Counts[models.OrderStatusPending] != want {
			t.Errorf("%s: active %d, counts %v", r.ShopName, r.ActiveOrders, r.Counts)
		}
	}

	expectStatus(t, api.do(http.MethodGet, "/reports/shops/9999", chairmanToken, nil), http.StatusNotFound)
}

func TestDuplicateNamesAreConflicts(t *testing.T) {
	api := newTestAPI(t)
	adminToken, _ := api.tokenFor(models.RoleSuperadmin, nil)

	expectStatus(t, api.do(http.MethodPost, "/admin/shops", adminToken, CreateShopRequest{Name: "Main Canteen"}), http.StatusCreated)
	w := api.do(http.MethodPost, "/admin/shops", adminToken, CreateShopRequest{Name: "Main Canteen"})
	expectStatus(t, w, http.StatusConflict)

	w = api.do(http.MethodPost, "/admin/shops", adminToken, CreateShopRequest{Name: "Annex"})
	expectStatus(t, w, http.StatusCreated)
	var annex struct {
		Shop models.Shop `json:"shop"`
	}
	decodeBody(t, w, &annex)
	taken := "Main Canteen"
	path := fmt.Sprintf("/admin/shops/%d", annex.Shop.ID)
	expectStatus(t, api.do(http.MethodPut, path, adminToken, UpdateShopRequest{Name: &taken}), http.StatusConflict)

	register := RegisterRequest{Name: "Asha", Email: "asha@campus.test", Password: "s3cret-pass"}
	expectStatus(t, api.do(http.MethodPost, "/auth/register", "", register), http.StatusCreated)
	register.Email = "ASHA@campus.test"
	expectStatus(t, api.do(http.MethodPost, "/auth/register", "", register), http.StatusConflict)
}
