package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/relgraph/internal/ontology"
)

// MappingHandler exposes the loaded schema mapping read-only, so callers can
// discover which relationships support which operations.
type MappingHandler struct {
	mapping *ontology.Mapping
	log     *logrus.Logger
}

// NewMappingHandler creates a MappingHandler.
func NewMappingHandler(mapping *ontology.Mapping, log *logrus.Logger) *MappingHandler {
	return &MappingHandler{mapping: mapping, log: log}
}

type entityView struct {
	Name       string   `json:"name"`
	Table      string   `json:"table"`
	PrimaryKey []string `json:"primary_key"`
	SoftDelete bool     `json:"soft_delete"`
}

type weightView struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Unit string `json:"unit,omitempty"`
}

type relationshipView struct {
	Name            string       `json:"name"`
	Table           string       `json:"table"`
	From            string       `json:"from"`
	To              []string     `json:"to"`
	Operations      []string     `json:"operations"`
	Weights         []weightView `json:"weights"`
	Temporal        bool         `json:"temporal"`
	SoftDelete      bool         `json:"soft_delete"`
	SelfReferential bool         `json:"self_referential"`
	Description     string       `json:"description,omitempty"`
}

type mappingView struct {
	Version       string             `json:"version"`
	Name          string             `json:"name,omitempty"`
	Entities      []entityView       `json:"entities"`
	Relationships []relationshipView `json:"relationships"`
}

// List handles GET /api/v1/mapping.
func (h *MappingHandler) List(c *gin.Context) {
	if err := h.mapping.Err(); err != nil {
		respondEngineError(c, h.log, "mapping", err)

		return
	}

	view := mappingView{
		Version:       h.mapping.Version(),
		Name:          h.mapping.Name(),
		Entities:      []entityView{},
		Relationships: []relationshipView{},
	}

	for _, name := range h.mapping.EntityNames() {
		e, err := h.mapping.ResolveEntity(name)
		if err != nil {
			respondEngineError(c, h.log, "mapping", err)

			return
		}

		view.Entities = append(view.Entities, entityView{
			Name:       e.Name,
			Table:      e.Table,
			PrimaryKey: e.PrimaryKey,
			SoftDelete: e.SoftDelete != nil,
		})
	}

	for _, name := range h.mapping.RelationshipNames() {
		r, err := h.mapping.ResolveRelationship(name)
		if err != nil {
			respondEngineError(c, h.log, "mapping", err)

			return
		}

		view.Relationships = append(view.Relationships, describeRelationship(r))
	}

	c.JSON(http.StatusOK, view)
}

// Relationship handles GET /api/v1/mapping/relationships/:name.
func (h *MappingHandler) Relationship(c *gin.Context) {
	name := c.Param("name")
	if err := validatePathID(name); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	r, err := h.mapping.ResolveRelationship(name)
	if err != nil {
		if errors.Is(err, ontology.ErrRelationshipNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "relationship not found")

			return
		}

		respondEngineError(c, h.log, "mapping", err)

		return
	}

	c.JSON(http.StatusOK, describeRelationship(r))
}

func describeRelationship(r *ontology.Relationship) relationshipView {
	v := relationshipView{
		Name:            r.Name,
		Table:           r.Table,
		Operations:      r.Ops().Strings(),
		Weights:         make([]weightView, 0, len(r.Weights)),
		Temporal:        r.Temporal != nil,
		SoftDelete:      r.SoftDelete != nil,
		SelfReferential: r.SelfReferential(),
		Description:     r.Description,
		To:              []string{},
	}

	if d := r.Domain(); d != nil {
		v.From = d.Name
	}

	if t := r.Target(); t != nil {
		for _, e := range t.Entities() {
			v.To = append(v.To, e.Name)
		}
	}

	for _, w := range r.Weights {
		v.Weights = append(v.Weights, weightView{Name: w.Name, Type: w.Type, Unit: w.Unit})
	}

	return v
}
