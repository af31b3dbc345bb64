// Package search indexes completed reports in Elasticsearch and runs
// per-owner full-text queries over them.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"health-report-workers/internal/common/errors"
	"health-report-workers/internal/models"
	"health-report-workers/internal/report/risk"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	defaultSearchSize = 20
	maxSearchSize     = 100
)

var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"ownerId":         map[string]interface{}{"type": "keyword"},
			"reportId":        map[string]interface{}{"type": "keyword"},
			"orderId":         map[string]interface{}{"type": "keyword"},
			"status":          map[string]interface{}{"type": "keyword"},
			"generatedAt":     map[string]interface{}{"type": "date"},
			"title":           map[string]interface{}{"type": "text"},
			"summary":         map[string]interface{}{"type": "text"},
			"recommendations": map[string]interface{}{"type": "text"},
			"conclusions":     map[string]interface{}{"type": "text"},
			"fullContent":     map[string]interface{}{"type": "text"},
			"urgent":          map[string]interface{}{"type": "boolean"},
			"riskLevels": map[string]interface{}{
				"type": "nested",
				"properties": map[string]interface{}{
					"category": map[string]interface{}{"type": "keyword"},
					"level":    map[string]interface{}{"type": "keyword"},
				},
			},
		},
	},
}

// Document is the indexed projection of a completed report.
type Document struct {
	OwnerID         string            `json:"ownerId"`
	ReportID        string            `json:"reportId"`
	OrderID         string            `json:"orderId"`
	Status          models.Status     `json:"status"`
	GeneratedAt     time.Time         `json:"generatedAt"`
	Title           string            `json:"title"`
	Summary         string            `json:"summary"`
	Recommendations []string          `json:"recommendations"`
	Conclusions     string            `json:"conclusions"`
	FullContent     string            `json:"fullContent"`
	RiskLevels      []risk.Assessment `json:"riskLevels"`
	Urgent          bool              `json:"urgent"`
}

type Hit struct {
	ReportID    string    `json:"reportId"`
	OrderID     string    `json:"orderId"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generatedAt"`
	Score       float64   `json:"score"`
}

type Index struct {
	client *elasticsearch.Client
	name   string
}

func NewIndex(client *elasticsearch.Client, name string) *Index {
	return &Index{client: client, name: name}
}

func documentID(ownerID, reportID string) string {
	return ownerID + ":" + reportID
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (i *Index) EnsureIndex(ctx context.Context) error {
	exists, err := esapi.IndicesExistsRequest{Index: []string{i.name}}.Do(ctx, i.client)
	if err != nil {
		return errors.NewExternalServiceError("elasticsearch", err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := json.Marshal(indexMapping)
	res, err := esapi.IndicesCreateRequest{Index: i.name, Body: bytes.NewReader(body)}.Do(ctx, i.client)
	if err != nil {
		return errors.NewExternalServiceError("elasticsearch", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.NewExternalServiceError("elasticsearch", fmt.Errorf("create index %s: %s", i.name, res.String()))
	}
	return nil
}

// IndexReport writes a completed report. Other statuses are rejected.
func (i *Index) IndexReport(ctx context.Context, report *models.Report) (Document, error) {
	if report.Status != models.StatusCompleted {
		return Document{}, errors.NewBusinessRuleError("Only completed reports are indexed",
			fmt.Sprintf("reportId: %s, status: %s", report.ReportID, report.Status))
	}

	assessments := risk.Scan(report.FullContent, report.Sections)
	doc := Document{
		OwnerID:         report.OwnerID,
		ReportID:        report.ReportID,
		OrderID:         report.OrderID,
		Status:          report.Status,
		GeneratedAt:     report.GeneratedAt,
		Title:           report.Title,
		Summary:         report.Summary,
		Recommendations: report.Recommendations,
		Conclusions:     report.Conclusions,
		FullContent:     report.FullContent,
		RiskLevels:      assessments,
		Urgent:          risk.RequiresPromptAttention(report.FullContent, assessments),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return Document{}, errors.NewReportIndexFailedError(report.ReportID, err)
	}

	res, err := esapi.IndexRequest{
		Index:      i.name,
		DocumentID: documentID(report.OwnerID, report.ReportID),
		Body:       bytes.NewReader(body),
	}.Do(ctx, i.client)
	if err != nil {
		return Document{}, errors.NewReportIndexFailedError(report.ReportID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return Document{}, errors.NewReportIndexFailedError(report.ReportID, fmt.Errorf("index: %s", res.String()))
	}
	return doc, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64  `json:"_score"`
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs query against one owner's reports, best match first.
func (i *Index) Search(ctx context.Context, ownerID, query string, size int) ([]Hit, error) {
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}

	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  query,
							"fields": []string{"title^2", "summary^2", "recommendations", "conclusions", "fullContent"},
						},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"ownerId": ownerID}},
				},
			},
		},
		"_source": []string{"reportId", "orderId", "title", "summary", "generatedAt"},
	}
	body, _ := json.Marshal(q)

	res, err := esapi.SearchRequest{
		Index: []string{i.name},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}.Do(ctx, i.client)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(fmt.Errorf("search: %s", res.String()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{
			ReportID:    h.Source.ReportID,
			OrderID:     h.Source.OrderID,
			Title:       h.Source.Title,
			Summary:     h.Source.Summary,
			GeneratedAt: h.Source.GeneratedAt,
			Score:       h.Score,
		})
	}
	return hits, nil
}
