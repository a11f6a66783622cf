package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/internal/dto"
	apperrors "pharmacie-admin/pkg/errors"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStock_EitherVisibilityIsEnough(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "lots", nil, authz.ViewLots)
	f.signIn(t, "none", nil, authz.ViewCommandes)
	svc := NewStockService(f.auth, zap.NewNop())
	f.mux.HandleFunc("GET /api/stock/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("page_size"))
		assert.False(t, r.URL.Query().Has("search"))
		writeJSON(w, http.StatusOK, map[string]any{"results": []any{map[string]any{"id": 1}}, "count": 21})
	})

	res, err := svc.Stock(context.Background(), "lots", 2, "")
	require.NoError(t, err)
	assert.Equal(t, 21, res.Total)

	_, err = svc.Stock(context.Background(), "none", 1, "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestProduitsWithStock_Search(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "s1", nil, authz.AddCommandes)
	svc := NewStockService(f.auth, zap.NewNop())
	f.mux.HandleFunc("GET /api/produits-with-stock/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "doli", r.URL.Query().Get("search"))
		writeJSON(w, http.StatusOK, []any{map[string]any{"id": 4, "denomination": "Doliprane", "stock_total": 80}})
	})

	res, err := svc.ProduitsWithStock(context.Background(), "s1", "doli")
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Doliprane", res.Data[0]["denomination"])
}

func TestReceive_PostsLines(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "s1", nil, authz.AddLots)
	svc := NewStockService(f.auth, zap.NewNop())

	var posted map[string]any
	f.mux.HandleFunc("POST /api/stock/reception/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		writeJSON(w, http.StatusCreated, map[string]any{
			"nombre_lots":     1,
			"fournisseur_nom": "Laborex",
			"lots":            []any{map[string]any{"produit_denomination": "Doliprane", "numero_lot": "L-1", "quantite": 40}},
		})
	})

	res, err := svc.Receive(context.Background(), "s1", dto.StockReceptionDTO{
		FournisseurID: 2,
		Lignes: []dto.ReceptionLineDTO{{
			ProduitID:      4,
			NumeroLot:      "L-1",
			Quantite:       40,
			DatePeremption: "2027-01-31",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Laborex", res.FournisseurNom)
	require.Len(t, res.Lots, 1)

	line := posted["lignes"].([]any)[0].(map[string]any)
	assert.Nil(t, line["prix_unitaire"])
	assert.Nil(t, line["date_fabrication"])
	assert.Equal(t, "2027-01-31", line["date_peremption"])
}

func TestReceive_RequiresAddLots(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, "s1", nil, authz.ViewLots)
	svc := NewStockService(f.auth, zap.NewNop())

	_, err := svc.Receive(context.Background(), "s1", dto.StockReceptionDTO{
		FournisseurID: 2,
		Lignes:        []dto.ReceptionLineDTO{{ProduitID: 4, PrixUnitaire: null.Float64From(1.5)}},
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
