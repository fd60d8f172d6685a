package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storagehub/storaged/internal/repository"
	"github.com/storagehub/storaged/internal/storage"
)

// Deps are the only core contracts the HTTP layer may call.
type Deps struct {
	Locations repository.Repository[storage.Location, *storage.Location]
	Units     repository.Repository[storage.StorageUnit, *storage.StorageUnit]
	Bins      repository.Repository[storage.StorageBin, *storage.StorageBin]
	Placement *storage.Coordinator
}

// Register mounts the CRUD and placement routes.
func Register(r *gin.Engine, deps Deps) {
	locations := NewCrud[storage.Location](deps.Locations)
	r.GET("/api/locations", locations.List)
	r.GET("/api/locations/:id", locations.Get)
	r.POST("/api/locations", locations.Create)
	r.PUT("/api/locations/:id", locations.Update)
	r.DELETE("/api/locations/:id", locations.Delete)

	bins := NewCrud[storage.StorageBin](deps.Bins)
	r.GET("/api/bins", bins.List)
	r.GET("/api/bins/:id", bins.Get)
	r.POST("/api/bins", bins.Create)
	r.PUT("/api/bins/:id", bins.Update)
	r.DELETE("/api/bins/:id", bins.Delete)

	units := NewCrud[storage.StorageUnit](deps.Units)
	u := unitHandler{crud: units, deps: deps}
	r.GET("/api/units", units.List)
	r.GET("/api/units/:id", units.Get)
	r.POST("/api/units", u.create)
	r.PUT("/api/units/:id", u.update)
	r.DELETE("/api/units/:id", units.Delete)

	r.POST("/api/units/:id/assign", u.assign)
	r.GET("/api/units/:id/cells/:row/:col", u.cell)
}

type unitHandler struct {
	crud *Crud[storage.StorageUnit, *storage.StorageUnit]
	deps Deps
}

// create takes the layout, not raw rows: the grid is built here and
// never edited afterwards.
func (h unitHandler) create(c *gin.Context) {
	var req struct {
		Name          string `json:"name"`
		Rows          int    `json:"rows"`
		ColumnsPerRow int    `json:"columnsPerRow"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unit, err := storage.NewStorageUnit(req.Name, req.Rows, req.ColumnsPerRow)
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := h.deps.Units.InsertOne(c.Request.Context(), unit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// update is rejected: unit layouts change only through specific actions.
func (h unitHandler) update(c *gin.Context) {
	writeError(c, storage.ErrImmutableLayout)
}

func (h unitHandler) assign(c *gin.Context) {
	var req struct {
		BinID string `json:"binId"`
		Row   int    `json:"row"`
		Col   int    `json:"col"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bin, err := h.deps.Placement.AssignBin(c.Request.Context(), c.Param("id"), req.BinID, req.Row, req.Col)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bin)
}

func (h unitHandler) cell(c *gin.Context) {
	row, err1 := strconv.Atoi(c.Param("row"))
	col, err2 := strconv.Atoi(c.Param("col"))
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "row and col must be integers"})
		return
	}
	ref, err := h.deps.Placement.GetAssignedBin(c.Request.Context(), c.Param("id"), row, col)
	if err != nil {
		writeError(c, err)
		return
	}
	if ref == nil {
		c.JSON(http.StatusOK, gin.H{"bin": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bin": ref})
}
