package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/go-order-core/internal/checkout"
	"github.com/safar/go-order-core/internal/config"
	"github.com/safar/go-order-core/internal/database"
	"github.com/safar/go-order-core/internal/logger"
	"github.com/safar/go-order-core/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	log.Info("connected to database")

	svc := checkout.NewService(store.NewCategories(db))

	mux := http.NewServeMux()

	mux.HandleFunc("/stores", handleStores(db, log))
	mux.HandleFunc("/purchasables", handlePurchasables(db, log))
	mux.HandleFunc("/purchasables/", handlePurchasableByID(db, log))
	mux.HandleFunc("/orders", handleOrders(db, svc, log))
	mux.HandleFunc("/orders/", handleOrderByID(db, svc, log))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := server.ListenAndServe(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func handleStores(db *sql.DB, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Code string `json:"code"`
				Name string `json:"name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, log, http.StatusBadRequest, "Invalid request body")
				return
			}

			s, err := store.CreateStore(ctx, db, req.Code, req.Name)
			if err != nil {
				respondStoreError(w, log, err)
				return
			}

			respondJSON(w, log, http.StatusCreated, s)

		case http.MethodGet:
			page, pageSize := pageParams(r)

			result, err := store.ListStores(ctx, db, page, pageSize)
			if err != nil {
				respondStoreError(w, log, err)
				return
			}

			respondJSON(w, log, http.StatusOK, result)

		default:
			respondError(w, log, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handlePurchasables(db *sql.DB, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				SKU                  string   `json:"sku"`
				Description          string   `json:"description"`
				TaxCategoryID        *int64   `json:"tax_category_id"`
				ShippingCategoryID   *int64   `json:"shipping_category_id"`
				Width                *float64 `json:"width"`
				Height               *float64 `json:"height"`
				Length               *float64 `json:"length"`
				Weight               *float64 `json:"weight"`
				Enabled              bool     `json:"enabled"`
				StoreID              int64    `json:"store_id"`
				Price                float64  `json:"price"`
				PromotionalPrice     *float64 `json:"promotional_price"`
				Stock                int      `json:"stock"`
				HasUnlimitedStock    bool     `json:"has_unlimited_stock"`
				MinQty               int      `json:"min_qty"`
				MaxQty               int      `json:"max_qty"`
				AvailableForPurchase bool     `json:"available_for_purchase"`
				Promotable           bool     `json:"promotable"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, log, http.StatusBadRequest, "Invalid request body")
				return
			}

			storeID := req.StoreID
			if storeID == 0 {
				defaultStore, err := store.GetDefaultStore(ctx, db)
				if err != nil {
					respondStoreError(w, log, err)
					return
				}
				storeID = defaultStore.ID
			}

			item, err := store.CreatePurchasable(ctx, db, store.CreatePurchasableRequest{
				SKU:                  req.SKU,
				Description:          req.Description,
				TaxCategoryID:        nullInt64(req.TaxCategoryID),
				ShippingCategoryID:   nullInt64(req.ShippingCategoryID),
				Width:                nullDecimal(req.Width),
				Height:               nullDecimal(req.Height),
				Length:               nullDecimal(req.Length),
				Weight:               nullDecimal(req.Weight),
				Enabled:              req.Enabled,
				StoreID:              storeID,
				Price:                decimal.NewFromFloat(req.Price),
				PromotionalPrice:     nullDecimal(req.PromotionalPrice),
				Stock:                req.Stock,
				HasUnlimitedStock:    req.HasUnlimitedStock,
				MinQty:               req.MinQty,
				MaxQty:               req.MaxQty,
				AvailableForPurchase: req.AvailableForPurchase,
				Promotable:           req.Promotable,
			})
			if err != nil {
				respondStoreError(w, log, err)
				return
			}

			respondJSON(w, log, http.StatusCreated, item)

		case http.MethodGet:
			storeID, err := storeIDParam(ctx, db, r)
			if err != nil {
				respondStoreError(w, log, err)
				return
			}
			page, pageSize := pageParams(r)

			result, err := store.ListCatalogItems(ctx, db, storeID, page, pageSize)
			if err != nil {
				respondStoreError(w, log, err)
				return
			}

			respondJSON(w, log, http.StatusOK, result)

		default:
			respondError(w, log, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handlePurchasableByID(db *sql.DB, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		idStr := r.URL.Path[len("/purchasables/"):]
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, log, http.StatusBadRequest, "Invalid purchasable ID")
			return
		}

		switch r.Method {
		case http.MethodGet:
			storeID, err := storeIDParam(ctx, db, r)
			if err != nil {
				respondStoreError(w, log, err)
				return
			}

			item, err := store.GetCatalogItem(ctx, db, id, storeID)
			if err != nil {
				respondStoreError(w, log, err)
				return
			}

			respondJSON(w, log, http.StatusOK, item)

		case http.MethodDelete:
			if err := store.DeletePurchasable(ctx, db, id); err != nil {
				respondStoreError(w, log, err)
				return
			}

			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, log, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleOrders(db *sql.DB, svc *checkout.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				StoreID int64 `json:"store_id"`
				Items   []struct {
					PurchasableID int64 `json:"purchasable_id"`
					Qty           int   `json:"qty"`
				} `json:"items"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, log, http.StatusBadRequest, "Invalid request body")
				return
			}

			storeID := req.StoreID
			if storeID == 0 {
				defaultStore, err := store.GetDefaultStore(ctx, db)
				if err != nil {
					respondStoreError(w, log, err)
					return
				}
				storeID = defaultStore.ID
			}

			var items []store.LineItemRequest
			for _, item := range req.Items {
				items = append(items, store.LineItemRequest{
					PurchasableID: item.PurchasableID,
					Qty:           item.Qty,
				})
			}

			order, err := store.CreateOrder(ctx, db, svc, store.CreateOrderRequest{
				StoreID: storeID,
				Items:   items,
			})
			if err != nil {
				respondStoreError(w, log, err)
				return
			}

			respondJSON(w, log, http.StatusCreated, order)

		case http.MethodGet:
			storeID, err := storeIDParam(ctx, db, r)
			if err != nil {
				respondStoreError(w, log, err)
				return
			}

			cursor := r.URL.Query().Get("cursor")
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			if limit < 1 || limit > 100 {
				limit = 20
			}

			result, err := store.ListOrdersCursor(ctx, db, storeID, cursor, limit)
			if err != nil {
				respondStoreError(w, log, err)
				return
			}

			respondJSON(w, log, http.StatusOK, result)

		default:
			respondError(w, log, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// handleOrderByID covers GET /orders/{id}, POST /orders/{id}/complete and
// PATCH /orders/{id}/items/{itemID}.
func handleOrderByID(db *sql.DB, svc *checkout.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		parts := strings.Split(strings.Trim(r.URL.Path[len("/orders/"):], "/"), "/")
		orderID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			respondError(w, log, http.StatusBadRequest, "Invalid order ID")
			return
		}

		switch {
		case len(parts) == 1 && r.Method == http.MethodGet:
			order, err := store.GetOrder(ctx, db, orderID)
			if err != nil {
				respondStoreError(w, log, err)
				return
			}

			respondJSON(w, log, http.StatusOK, order)

		case len(parts) == 2 && parts[1] == "complete" && r.Method == http.MethodPost:
			order, err := store.CompleteOrder(ctx, db, orderID)
			if err != nil {
				respondStoreError(w, log, err)
				return
			}

			log.Info("order completed",
				zap.Int64("order_id", order.ID),
				zap.String("order_number", order.OrderNumber))

			respondJSON(w, log, http.StatusOK, order)

		case len(parts) == 3 && parts[1] == "items" && r.Method == http.MethodPatch:
			lineItemID, err := strconv.ParseInt(parts[2], 10, 64)
			if err != nil {
				respondError(w, log, http.StatusBadRequest, "Invalid line item ID")
				return
			}

			var req struct {
				Qty int `json:"qty"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, log, http.StatusBadRequest, "Invalid request body")
				return
			}

			order, err := store.UpdateLineItemQty(ctx, db, svc, orderID, lineItemID, req.Qty)
			if err != nil {
				respondStoreError(w, log, err)
				return
			}

			respondJSON(w, log, http.StatusOK, order)

		default:
			respondError(w, log, http.StatusNotFound, "Not found")
		}
	}
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// storeIDParam reads ?store_id= and falls back to the default store.
func storeIDParam(ctx context.Context, db *sql.DB, r *http.Request) (int64, error) {
	if raw := r.URL.Query().Get("store_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, database.ErrStoreNotFound
		}
		return id, nil
	}

	defaultStore, err := store.GetDefaultStore(ctx, db)
	if err != nil {
		return 0, err
	}
	return defaultStore.ID, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullDecimal(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(*v), Valid: true}
}

// respondStoreError maps domain errors onto HTTP statuses. Validation
// failures surface the full rule list plus any notices; everything else is
// a conventional status + message.
func respondStoreError(w http.ResponseWriter, log *zap.Logger, err error) {
	var validation *store.ValidationFailed
	if errors.As(err, &validation) {
		respondJSON(w, log, http.StatusUnprocessableEntity, map[string]any{
			"errors":  validation.Errors,
			"notices": validation.Notices,
		})
		return
	}

	var configErr *checkout.ConfigurationError
	if errors.As(err, &configErr) {
		log.Error("configuration error", zap.Error(err))
		respondError(w, log, http.StatusInternalServerError, configErr.Msg)
		return
	}

	switch {
	case errors.Is(err, database.ErrStoreNotFound),
		errors.Is(err, database.ErrPurchasableNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrLineItemNotFound):
		respondError(w, log, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrOrderCompleted),
		errors.Is(err, database.ErrPurchasableNotAvailable),
		errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrLockTimeout),
		errors.Is(err, database.ErrOptimisticLockFailed):
		respondError(w, log, http.StatusConflict, err.Error())
	default:
		log.Error("request failed", zap.Error(err))
		respondError(w, log, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, log *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, log *zap.Logger, status int, message string) {
	respondJSON(w, log, status, map[string]string{"error": message})
}
