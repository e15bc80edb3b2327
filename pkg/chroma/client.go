package chroma

import (
	"context"
	"fmt"
	"os"

	"hyperagent/pkg/config"
	"hyperagent/pkg/logging"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

const collectionName = "opportunities"

// maxDocumentChars keeps documents under the embedding model's token limit
const maxDocumentChars = 10000

// Document is one opportunity as stored in the vector index
type Document struct {
	OpportunityID string
	CelebrityID   string
	Source        string
	SenderHandle  string
	Subject       string
	Message       string
}

// Hit is one semantic search match; lower distance is closer
type Hit struct {
	OpportunityID string
	Distance      float64
}

type ChromaClient struct {
	client     chroma.Client
	collection chroma.Collection
	logger     logging.Logger
}

func NewChromaClient(cfg *config.Config, logger logging.Logger) (*ChromaClient, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}

	if cfg.GeminiAPIKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	var client chroma.Client
	switch {
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	case cfg.ChromaTenant != "":
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithTenant(cfg.ChromaTenant),
		)
	default:
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		context.Background(),
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	logger.WithField("collection", collectionName).Info("Initialized Chroma client")

	return &ChromaClient{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

// DocumentText is the text embedded for an opportunity.
func DocumentText(doc Document) string {
	text := fmt.Sprintf("From: %s\nChannel: %s\nSubject: %s\n\n%s", doc.SenderHandle, doc.Source, doc.Subject, doc.Message)
	if len(text) > maxDocumentChars {
		text = text[:maxDocumentChars]
	}
	return text
}

// Upsert indexes an opportunity, replacing any previous version with the same id.
func (c *ChromaClient) Upsert(ctx context.Context, doc Document) error {
	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"celebrity_id":   doc.CelebrityID,
		"opportunity_id": doc.OpportunityID,
		"source":         doc.Source,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(doc.OpportunityID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(DocumentText(doc)),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert opportunity embedding: %w", err)
	}
	return nil
}

// Search returns the opportunities of one celebrity closest to query.
func (c *ChromaClient) Search(ctx context.Context, celebrityID, query string, limit int) ([]Hit, error) {
	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("celebrity_id", celebrityID)),
	)
	if err != nil {
		c.logger.WithError(err).WithField("celebrity_id", celebrityID).Error("Chroma query failed")
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []Hit{}, nil
	}

	idGroups := results.GetIDGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []Hit{}, nil
	}
	distanceGroups := results.GetDistancesGroups()

	hits := make([]Hit, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		hit := Hit{OpportunityID: string(id)}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			hit.Distance = float64(distanceGroups[0][i])
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (c *ChromaClient) Delete(ctx context.Context, opportunityID string) error {
	if err := c.collection.Delete(ctx, chroma.WithIDsDelete(chroma.DocumentID(opportunityID))); err != nil {
		return fmt.Errorf("failed to delete opportunity embedding: %w", err)
	}
	return nil
}
