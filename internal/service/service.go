package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/directory"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/model"
	apimodel "gitlab.com/dirk.krummacker/phonebook-service/pkg/model"
	"go.uber.org/zap"
)

// Directory is the contact directory served by the HTTP API.
type Directory interface {
	List(ctx context.Context, q directory.Query) (directory.Page, error)
	Get(ctx context.Context, id int64) (model.Record, error)
	Create(ctx context.Context, fields model.Fields) (model.Record, error)
	Update(ctx context.Context, id int64, fields model.Fields) (model.Record, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// handler holds the dependencies of the HTTP endpoints.
type handler struct {
	dir Directory
	log *zap.Logger
}

// SetupHttpRouter initializes the REST API router and registers all endpoints. With
// requestLogging set to false no access log lines are written.
func SetupHttpRouter(dir Directory, log *zap.Logger, requestLogging bool) *gin.Engine {
	router := gin.New()
	router.Use(requestID())
	if requestLogging {
		router.Use(requestLog(log))
	} else {
		log.Info("Turning off HTTP request logging.")
	}
	router.Use(gin.Recovery())

	h := &handler{dir: dir, log: log}
	router.GET("/records", h.findRecords)
	router.POST("/records", h.createRecord)
	router.GET("/records/:id", h.findRecordByID)
	router.PUT("/records/:id", h.updateRecordByID)
	router.DELETE("/records/:id", h.deleteRecordByID)

	// Paths used by the web front end.
	router.GET("/", h.findRecords)
	router.POST("/record/store", h.createRecord)
	router.GET("/record/:id", h.findRecordByID)
	router.PUT("/record/:id", h.updateRecordByID)
	router.DELETE("/record/:id", h.deleteRecordByID)

	router.GET("/healthz", h.health)
	return router
}

// findRecords responds with one page of contact records as JSON.
//
// The URL parameter 'search' is matched case-insensitively against first name, surname, the
// combinations "First Surname", "Surname First" and "Surname, First", phone, city, state and
// postcode. A record matches if any of them contains the search term.
//
// The URL parameter 'sort' is one of 'name', 'phone', 'city', 'state' and 'postcode'. Sorting by
// name orders by surname and then by first name. Any other value sorts by name.
//
// The URL parameter 'direction' is 'asc' or 'desc'. Any other value sorts ascending.
//
// The URL parameters 'page' (starting at 1) and 'page_size' select the page. A page past the
// last one is answered with an empty list.
//
// REST API calls:
//
//	> curl "http://localhost:8080/records"
//	> curl "http://localhost:8080/records?search=Smith,%20Olivia"
//	> curl "http://localhost:8080/records?sort=postcode&direction=desc&page=2"
func (h *handler) findRecords(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	result, err := h.dir.List(c.Request.Context(), directory.Query{
		Search:    c.Query("search"),
		Sort:      c.Query("sort"),
		Direction: c.Query("direction"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, h.listResponse(c, result))
}

// listResponse converts a page into its JSON shape, including the paging links.
func (h *handler) listResponse(c *gin.Context, p directory.Page) apimodel.ListResponse {
	records := make([]apimodel.ContactRecord, 0, len(p.Records))
	for _, r := range p.Records {
		records = append(records, toContactRecord(r))
	}
	keepPageSize := c.Query("page_size") != ""
	response := apimodel.ListResponse{
		Records:   records,
		Total:     p.Total,
		Page:      p.Page,
		PageSize:  p.PageSize,
		PageCount: p.PageCount,
		Sort:      p.Sort,
		Direction: p.Direction,
		Search:    p.Search,
		Links: apimodel.Links{
			First: pageURL(c.Request.URL.Path, p, 1, keepPageSize),
			Last:  pageURL(c.Request.URL.Path, p, p.PageCount, keepPageSize),
		},
	}
	if prev, ok := p.PrevPage(); ok {
		link := pageURL(c.Request.URL.Path, p, prev, keepPageSize)
		response.PrevPage = &prev
		response.Links.Prev = &link
	}
	if next, ok := p.NextPage(); ok {
		link := pageURL(c.Request.URL.Path, p, next, keepPageSize)
		response.NextPage = &next
		response.Links.Next = &link
	}
	return response
}

// pageURL returns the URL of another page of the same listing.
func pageURL(path string, p directory.Page, page int, keepPageSize bool) string {
	values := url.Values{}
	if p.Search != "" {
		values.Set("search", p.Search)
	}
	values.Set("sort", p.Sort)
	values.Set("direction", p.Direction)
	if keepPageSize {
		values.Set("page_size", strconv.Itoa(p.PageSize))
	}
	values.Set("page", strconv.Itoa(page))
	return path + "?" + values.Encode()
}

// createRecord stores the contact specified in the request's JSON. It responds with the full
// record including the newly assigned id.
//
// Example REST API call:
//
//	> curl http://localhost:8080/records --request "POST" --include --header "Content-Type: application/json" --data '{"first_name": "Olivia", "surname": "Smith", "phone": "0400000001", "city": "Brisbane City", "state": "QLD", "postcode": "4000"}'
func (h *handler) createRecord(c *gin.Context) {
	var fields model.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, apimodel.MessageResponse{Message: "invalid JSON"})
		return
	}
	record, err := h.dir.Create(c.Request.Context(), fields)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, toContactRecord(record))
}

// findRecordByID responds with the record whose id matches the id parameter of the request URL.
//
// Example REST API call:
//
//	> curl http://localhost:8080/records/56
func (h *handler) findRecordByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	record, err := h.dir.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, toContactRecord(record))
}

// updateRecordByID replaces all fields of the record whose id matches the id parameter of the
// request URL with the values in the JSON, and responds with the new version of the record.
// Fields missing from the JSON are cleared, or rejected if they are required.
//
// Example REST API call:
//
//	> curl http://localhost:8080/records/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"first_name": "Olivia", "surname": "Smith", "phone": "0400000001"}'
func (h *handler) updateRecordByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var fields model.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, apimodel.MessageResponse{Message: "invalid JSON"})
		return
	}
	record, err := h.dir.Update(c.Request.Context(), id, fields)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, toContactRecord(record))
}

// deleteRecordByID deletes the record whose id matches the id parameter of the request URL.
//
// Example REST API call:
//
//	> curl http://localhost:8080/records/56 --request "DELETE"
func (h *handler) deleteRecordByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.dir.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, apimodel.MessageResponse{Message: "record deleted"})
}

// health answers with OK as long as the database can be reached.
func (h *handler) health(c *gin.Context) {
	if err := h.dir.Ping(c.Request.Context()); err != nil {
		h.log.Warn("Database unreachable", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, apimodel.MessageResponse{Message: "database unreachable"})
		return
	}
	c.IndentedJSON(http.StatusOK, apimodel.MessageResponse{Message: "ok"})
}

// parseID reads the id parameter of the request URL. Ids that are not positive numbers cannot
// exist, so they are answered with NOT FOUND right away.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.AbortWithStatusJSON(http.StatusNotFound, apimodel.MessageResponse{Message: "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// writeError answers with the status code that matches err.
func (h *handler) writeError(c *gin.Context, err error) {
	var verr *directory.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, apimodel.MessageResponse{
			Message: "validation failed",
			Errors:  verr.Fields,
		})
	case errors.Is(err, directory.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, apimodel.MessageResponse{Message: "record not found"})
	default:
		h.log.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("requestID", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, apimodel.MessageResponse{Message: "internal error"})
	}
}

func toContactRecord(r model.Record) apimodel.ContactRecord {
	return apimodel.ContactRecord{
		Id:        r.Id,
		FirstName: r.FirstName,
		Surname:   r.Surname,
		Phone:     r.Phone,
		Address1:  r.Address1,
		Address2:  r.Address2,
		City:      r.City,
		State:     r.State,
		Postcode:  r.Postcode,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
