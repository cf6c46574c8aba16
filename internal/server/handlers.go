package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/engine"
	"github.com/roach88/sparqlayers/internal/rdf"
	"github.com/roach88/sparqlayers/internal/store"
)

// queryRequest is the body shared by the query routes. Node selects an
// operator by ID; the root is used when it is absent.
type queryRequest struct {
	Query          string          `json:"query" binding:"required"`
	Node           *algebra.NodeID `json:"node"`
	Location       string          `json:"location"`
	Authentication string          `json:"authentication"`
}

func (r queryRequest) connection() algebra.Connection {
	return algebra.Connection{Location: r.Location, Authentication: r.Authentication}
}

func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		handleError(c, badRequest("invalid request body", err))
		return false
	}
	return true
}

func (s *Server) load(text string, conn algebra.Connection, node *algebra.NodeID) (*engine.Document, algebra.NodeID, error) {
	doc, err := s.engine.Load(text, conn)
	if err != nil {
		return nil, algebra.None, err
	}
	id := doc.Root
	if node != nil {
		id = *node
	}
	if doc.Tree.Node(id) == nil {
		return nil, algebra.None, fmt.Errorf("node %d: %w", id, algebra.ErrUnknownNode)
	}
	return doc, id, nil
}

// handleParse returns the operator tree of a query.
func (s *Server) handleParse(c *gin.Context) {
	var req queryRequest
	if !bindQuery(c, &req) {
		return
	}
	doc, _, err := s.load(req.Query, req.connection(), nil)
	if err != nil {
		handleError(c, err)
		return
	}

	var nodes []nodeView
	doc.Tree.MapOperations(doc.Root, func(n *algebra.Node) {
		nodes = append(nodes, viewOf(n))
	})
	c.JSON(http.StatusOK, gin.H{
		"root":      doc.Root,
		"tree":      algebra.Format(doc.Tree, doc.Root),
		"nodes":     nodes,
		"fallbacks": fallbackViews(doc.Fallbacks),
	})
}

// handleQueries returns the standalone query of every operator.
func (s *Server) handleQueries(c *gin.Context) {
	var req queryRequest
	if !bindQuery(c, &req) {
		return
	}
	doc, _, err := s.load(req.Query, req.connection(), nil)
	if err != nil {
		handleError(c, err)
		return
	}

	var nodes []nodeView
	var exprErr error
	doc.Tree.MapOperations(doc.Root, func(n *algebra.Node) {
		if exprErr != nil {
			return
		}
		v := viewOf(n)
		v.Expression, exprErr = doc.Tree.Expression(n.ID)
		nodes = append(nodes, v)
	})
	if exprErr != nil {
		handleError(c, exprErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes})
}

// handleExecute runs one operator against its endpoint.
func (s *Server) handleExecute(c *gin.Context) {
	var req queryRequest
	if !bindQuery(c, &req) {
		return
	}
	doc, id, err := s.load(req.Query, req.connection(), req.Node)
	if err != nil {
		handleError(c, err)
		return
	}
	s.execute(c, doc, id)
}

func (s *Server) execute(c *gin.Context, doc *engine.Document, id algebra.NodeID) {
	if _, err := s.engine.Execute(c.Request.Context(), doc.Tree, id, algebra.Connection{}); err != nil {
		handleError(c, err)
		return
	}
	model, err := doc.Tree.Model(id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"node":  viewOf(doc.Tree.Node(id)),
		"model": model,
	})
}

// handlePredicates lists the predicates available to an operator.
func (s *Server) handlePredicates(c *gin.Context) {
	var req queryRequest
	if !bindQuery(c, &req) {
		return
	}
	doc, id, err := s.load(req.Query, req.connection(), req.Node)
	if err != nil {
		handleError(c, err)
		return
	}
	ps, err := s.engine.WithPredicates(c.Request.Context(), doc.Tree, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"predicates": ps})
}

type bgpRequest struct {
	queryRequest
	Predicate string `json:"predicate" binding:"required"`
	Enabled   *bool  `json:"enabled"`
	Dimension string `json:"dimension"`
}

// handleEditBGP toggles or renames a predicate of a BGP operator and
// returns the rewritten query.
func (s *Server) handleEditBGP(c *gin.Context) {
	var req bgpRequest
	if !bindQuery(c, &req) {
		return
	}
	if req.Enabled == nil && req.Dimension == "" {
		handleError(c, badRequest("one of enabled or dimension is required", nil))
		return
	}
	doc, id, err := s.load(req.Query, req.connection(), req.Node)
	if err != nil {
		handleError(c, err)
		return
	}

	predicate := rdf.NewNamedNode(req.Predicate)
	if req.Enabled != nil {
		if err := doc.Tree.SetPredicateState(id, predicate, *req.Enabled); err != nil {
			handleError(c, err)
			return
		}
	}
	if req.Dimension != "" {
		if err := doc.Tree.SetPredicateDimension(id, predicate, req.Dimension); err != nil {
			handleError(c, err)
			return
		}
	}

	query, err := doc.Tree.Expression(doc.Tree.Root(id))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"node":  viewOf(doc.Tree.Node(id)),
		"query": query,
	})
}

type documentRequest struct {
	Text           string `json:"text" binding:"required"`
	Location       string `json:"location"`
	Authentication string `json:"authentication"`
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.store.ListDocuments(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc, err := s.store.LoadDocument(c.Request.Context(), c.Param("name"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// handlePutDocument saves a document after checking that it parses.
func (s *Server) handlePutDocument(c *gin.Context) {
	var req documentRequest
	if !bindQuery(c, &req) {
		return
	}
	conn := algebra.Connection{Location: req.Location, Authentication: req.Authentication}
	if _, err := s.engine.Load(req.Text, conn); err != nil {
		handleError(c, err)
		return
	}

	doc := store.Document{Name: c.Param("name"), Text: req.Text, Connection: conn}
	rev, err := s.store.SaveDocument(c.Request.Context(), doc)
	if err != nil {
		handleError(c, err)
		return
	}
	doc.Revision = rev
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	if err := s.store.DeleteDocument(c.Request.Context(), c.Param("name")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleExecuteDocument runs a saved document. ?node= selects an operator.
func (s *Server) handleExecuteDocument(c *gin.Context) {
	saved, err := s.store.LoadDocument(c.Request.Context(), c.Param("name"))
	if err != nil {
		handleError(c, err)
		return
	}

	var node *algebra.NodeID
	if raw := c.Query("node"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			handleError(c, badRequest("invalid node", err))
			return
		}
		id := algebra.NodeID(n)
		node = &id
	}

	doc, id, err := s.load(saved.Text, saved.Connection, node)
	if err != nil {
		handleError(c, err)
		return
	}
	s.execute(c, doc, id)
}

// handleHistory returns the execution log. ?node= filters by node key and
// ?limit= caps the number of records (default 50).
func (s *Server) handleHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			handleError(c, badRequest("invalid limit", err))
			return
		}
		limit = n
	}
	runs, err := s.store.History(c.Request.Context(), c.Query("node"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}
