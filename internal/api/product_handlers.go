package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/service"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
)

type productRequest struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Category             string          `json:"category"`
	Price                decimal.Decimal `json:"price"`
	AvailableQuantity    int             `json:"availableQuantity"`
	MinimumOrderQuantity int             `json:"minimumOrderQuantity"`
	Featured             bool            `json:"featured"`
	ShowOnHome           bool            `json:"showOnHome"`
	Images               []string        `json:"images"`
}

type productUpdateRequest struct {
	Name                 *string          `json:"name"`
	Description          *string          `json:"description"`
	Category             *string          `json:"category"`
	Price                *decimal.Decimal `json:"price"`
	MinimumOrderQuantity *int             `json:"minimumOrderQuantity"`
	Featured             *bool            `json:"featured"`
	ShowOnHome           *bool            `json:"showOnHome"`
	Images               []string         `json:"images"`
}

type inventoryRequest struct {
	Delta             *int   `json:"delta"`
	AvailableQuantity *int   `json:"availableQuantity"`
	Reason            string `json:"reason"`
}

func parseCategory(raw string) (models.Category, error) {
	category, ok := models.ParseCategory(raw)
	if !ok {
		return "", apperrors.NewInvalidInputError(fmt.Sprintf("unknown category %q", raw))
	}
	return category, nil
}

func (s *Server) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.ProductQuery{OwnerID: q.Get("owner")}

	if raw := q.Get("category"); raw != "" {
		category, err := parseCategory(raw)
		if err != nil {
			s.respondWithError(w, err)
			return
		}
		query.Category = category
	}
	query.FeaturedOnly, _ = strconv.ParseBool(q.Get("featured"))
	query.HomeOnly, _ = strconv.ParseBool(q.Get("home"))
	query.Page, _ = pageFromQuery(r)

	products, err := s.products.ListProducts(r.Context(), query)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithPage(w, products, len(products), r)
}

func (s *Server) getProductHandler(w http.ResponseWriter, r *http.Request) {
	product, err := s.products.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: product})
}

func (s *Server) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	category, err := parseCategory(req.Category)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	minimum := req.MinimumOrderQuantity
	if minimum == 0 {
		minimum = 1
	}

	product, err := s.products.CreateProduct(r.Context(), principal(r), service.ProductInput{
		Name:                 req.Name,
		Description:          req.Description,
		Category:             category,
		Price:                req.Price,
		AvailableQuantity:    req.AvailableQuantity,
		MinimumOrderQuantity: minimum,
		Featured:             req.Featured,
		ShowOnHome:           req.ShowOnHome,
		Images:               req.Images,
	})
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: product})
}

func (s *Server) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req productUpdateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	update := service.ProductUpdate{
		Name:                 req.Name,
		Description:          req.Description,
		Price:                req.Price,
		MinimumOrderQuantity: req.MinimumOrderQuantity,
		Featured:             req.Featured,
		ShowOnHome:           req.ShowOnHome,
		Images:               req.Images,
	}
	if req.Category != nil {
		category, err := parseCategory(*req.Category)
		if err != nil {
			s.respondWithError(w, err)
			return
		}
		update.Category = &category
	}

	product, err := s.products.UpdateProduct(r.Context(), principal(r), mux.Vars(r)["id"], update)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: product})
}

func (s *Server) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.products.DeleteProduct(r.Context(), principal(r), id); err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    map[string]string{"message": "Product deleted", "id": id},
	})
}

func (s *Server) adjustInventoryHandler(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.respondWithError(w, err)
		return
	}

	product, err := s.products.AdjustInventory(r.Context(), principal(r), mux.Vars(r)["id"], service.InventoryInput{
		Delta:             req.Delta,
		AvailableQuantity: req.AvailableQuantity,
		Reason:            req.Reason,
	})
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: product})
}
