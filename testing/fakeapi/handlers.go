package fakeapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

func (s *Server) issueToken(c echo.Context) error {
	s.tokenRequests.Add(1)
	return c.JSON(http.StatusOK, TokenResponse{Token: s.IssueToken()})
}

type createTransferRequest struct {
	Name string `json:"name"`
}

func (s *Server) createTransfer(c echo.Context) error {
	var body createTransferRequest
	if err := c.Bind(&body); err != nil {
		return newAPIError(http.StatusBadRequest, "InvalidParameter", "request body is not valid JSON")
	}
	if strings.TrimSpace(body.Name) == "" {
		err := newAPIError(http.StatusBadRequest, "InvalidParameter", "name is required")
		err.details = &ErrorDetails{Name: "name", Type: "string", Reason: "required"}
		return err
	}

	s.mu.Lock()
	s.nextID++
	transfer := Transfer{ID: fmt.Sprintf("tr-%04d", s.nextID), Name: body.Name, Status: "Created"}
	s.transfers[transfer.ID] = transfer
	s.mu.Unlock()

	return c.JSON(http.StatusCreated, transfer)
}

func (s *Server) getTransfer(c echo.Context) error {
	id := c.Param("id")
	if id == MissingTransferID {
		return newAPIError(http.StatusNotFound, "NotFound", fmt.Sprintf("transfer %q not found", id))
	}

	s.mu.Lock()
	transfer, ok := s.transfers[id]
	s.mu.Unlock()
	if !ok {
		transfer = Transfer{ID: id, Status: "Uploaded"}
	}

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "xml") {
		return c.XML(http.StatusOK, transfer)
	}
	return c.JSON(http.StatusOK, transfer)
}
