package adapter

import (
	"context"
	"fmt"
	"sort"

	"github.com/evalgate/evalgate/internal/models"
)

type searchDocument struct {
	ID      string
	Title   string
	Content string
	Tags    []string
}

var searchDocuments = []searchDocument{
	{ID: "doc-001", Title: "Python List Sorting", Content: "Python lists can be sorted using the built-in sort() method for in-place sorting or the sorted() function which returns a new list. Both accept a key parameter for custom sorting and a reverse parameter for descending order. The Timsort algorithm is used, which has O(n log n) time complexity.", Tags: []string{"python", "programming", "sorting"}},
	{ID: "doc-002", Title: "JavaScript Async/Await", Content: "Async/await in JavaScript provides a cleaner syntax for working with promises. An async function always returns a promise. The await keyword pauses execution until the promise resolves. Error handling is done with try/catch blocks. This pattern is preferred over .then() chains for readability.", Tags: []string{"javascript", "programming", "async"}},
	{ID: "doc-003", Title: "Docker Container Basics", Content: "Docker containers are lightweight, standalone executable packages that include everything needed to run software. A Dockerfile defines the build steps. Key commands: docker build, docker run, docker ps, docker stop. Containers share the host OS kernel, making them more efficient than virtual machines.", Tags: []string{"docker", "devops", "containers"}},
	{ID: "doc-004", Title: "SQL JOIN Types", Content: "SQL supports several JOIN types: INNER JOIN returns matching rows from both tables. LEFT JOIN returns all rows from the left table plus matches. RIGHT JOIN returns all from the right table. FULL OUTER JOIN returns all rows from both tables. CROSS JOIN produces a Cartesian product.", Tags: []string{"sql", "database", "queries"}},
	{ID: "doc-005", Title: "Git Branching Strategy", Content: "Common Git branching strategies include Git Flow (feature/develop/release/hotfix branches), GitHub Flow (simple feature branches merged to main), and Trunk-Based Development (short-lived branches, frequent merges). Choose based on team size and release cadence.", Tags: []string{"git", "version-control", "workflow"}},
	{ID: "doc-006", Title: "REST API Design", Content: "REST API best practices: use nouns for endpoints (e.g., /users, /orders), HTTP methods for actions (GET, POST, PUT, DELETE), proper status codes (200, 201, 404, 500), pagination for collections, versioning in URL or headers, and HATEOAS for discoverability.", Tags: []string{"api", "rest", "web"}},
	{ID: "doc-007", Title: "Machine Learning Pipeline", Content: "A typical ML pipeline includes: data collection, data cleaning, feature engineering, model selection, training, validation, hyperparameter tuning, testing, deployment, and monitoring. Common tools include scikit-learn, TensorFlow, PyTorch, and MLflow for experiment tracking.", Tags: []string{"ml", "ai", "data-science"}},
	{ID: "doc-008", Title: "CSS Flexbox Layout", Content: "CSS Flexbox is a one-dimensional layout model. Key properties: display:flex on container, flex-direction (row/column), justify-content (main axis alignment), align-items (cross axis alignment), flex-wrap, and flex-grow/shrink/basis on items. Use for navigation bars, card layouts, and centering.", Tags: []string{"css", "frontend", "layout"}},
	{ID: "doc-009", Title: "Kubernetes Pods and Services", Content: "Kubernetes Pods are the smallest deployable units containing one or more containers. Services provide stable networking: ClusterIP (internal), NodePort (external via node), LoadBalancer (cloud LB), and Ingress (HTTP routing). Deployments manage Pod replicas and rolling updates.", Tags: []string{"kubernetes", "devops", "orchestration"}},
	{ID: "doc-010", Title: "React Hooks Overview", Content: "React Hooks let you use state and lifecycle features in functional components. useState for state management, useEffect for side effects, useContext for context, useRef for mutable refs, useMemo and useCallback for performance optimization. Custom hooks extract reusable logic.", Tags: []string{"react", "javascript", "frontend"}},
	{ID: "doc-011", Title: "PostgreSQL Performance Tuning", Content: "PostgreSQL performance tips: use EXPLAIN ANALYZE for query plans, create indexes on frequently queried columns, use connection pooling (PgBouncer), optimize shared_buffers and work_mem, vacuum regularly, use partitioning for large tables, and consider read replicas for scaling reads.", Tags: []string{"postgresql", "database", "performance"}},
	{ID: "doc-012", Title: "Python Virtual Environments", Content: "Python virtual environments isolate project dependencies. Create with python -m venv myenv, activate with source myenv/bin/activate. Use pip freeze to save and pip install -r requirements.txt to restore. Poetry and pipenv are modern alternatives.", Tags: []string{"python", "packaging", "environment"}},
	{ID: "doc-013", Title: "OAuth 2.0 Flow", Content: "OAuth 2.0 authorization flows: Authorization Code (web apps, most secure), Implicit (deprecated, was for SPAs), Client Credentials (machine-to-machine), Resource Owner Password (legacy apps). Use PKCE extension for public clients. Access tokens are short-lived; refresh tokens get new access tokens.", Tags: []string{"auth", "security", "oauth"}},
	{ID: "doc-014", Title: "Redis Caching Patterns", Content: "Redis caching patterns: Cache-Aside (app manages cache), Write-Through (write to cache and DB), Write-Behind (async DB writes), Read-Through (cache loads on miss). Set TTL for expiration. Use Redis for sessions, rate limiting, pub/sub messaging, and leaderboards.", Tags: []string{"redis", "caching", "performance"}},
	{ID: "doc-015", Title: "CI/CD with GitHub Actions", Content: "GitHub Actions automates CI/CD with YAML workflow files in .github/workflows/. Triggers include push, pull_request, schedule, and workflow_dispatch. Jobs run on runners. Matrix builds test multiple versions. Cache dependencies for speed.", Tags: []string{"ci-cd", "github", "automation"}},
	{ID: "doc-016", Title: "LangChain Framework", Content: "LangChain is an open-source framework for building applications powered by large language models (LLMs). It provides abstractions for chains, agents, memory, and retrieval (RAG pipelines). Key components include prompt templates, output parsers, document loaders, text splitters, vector stores, and retrievers.", Tags: []string{"langchain", "llm", "ai-framework"}},
	{ID: "doc-017", Title: "LlamaIndex (GPT Index)", Content: "LlamaIndex is a data framework for connecting custom data sources to large language models. It excels at building RAG (Retrieval-Augmented Generation) applications with features for data ingestion, indexing, and querying. It integrates with vector databases like Pinecone, Weaviate, and ChromaDB.", Tags: []string{"llamaindex", "rag", "ai-framework"}},
	{ID: "doc-018", Title: "Vector Databases for AI", Content: "Vector databases store and query high-dimensional embeddings for similarity search. Popular options: Pinecone, Weaviate, ChromaDB, Milvus, Qdrant. Use cases include semantic search, recommendation systems, RAG pipelines, and image similarity. Key concepts: embeddings, approximate nearest neighbor algorithms like HNSW, and distance metrics.", Tags: []string{"vector-db", "embeddings", "ai"}},
	{ID: "doc-019", Title: "Prompt Engineering Techniques", Content: "Prompt engineering optimizes LLM inputs for better outputs. Techniques include: zero-shot, few-shot, chain-of-thought, ReAct, tree-of-thought, and role prompting. Best practices: be specific, provide context, use delimiters, specify output format, and include examples. Temperature controls randomness.", Tags: []string{"prompt-engineering", "llm", "ai"}},
	{ID: "doc-020", Title: "RAG Architecture Patterns", Content: "Retrieval-Augmented Generation (RAG) combines retrieval with LLM generation. Basic RAG: embed documents, store in vector DB, retrieve top-k chunks for each query, feed to LLM as context. Advanced patterns: HyDE, multi-query retrieval, re-ranking, recursive retrieval. Evaluation metrics include faithfulness, answer relevancy, context precision, and context recall.", Tags: []string{"rag", "llm", "architecture"}},
	{ID: "doc-021", Title: "TypeScript Generics", Content: "TypeScript generics enable writing reusable, type-safe code. Declare with angle brackets. Constrain with extends. Use with interfaces, classes, and type aliases. Common patterns: generic collections, utility types, and mapped types. Generics are resolved at compile time with zero runtime cost.", Tags: []string{"typescript", "programming", "types"}},
	{ID: "doc-022", Title: "GraphQL API Design", Content: "GraphQL is a query language for APIs that lets clients request exactly the data they need. Define schemas with types, queries, mutations, and subscriptions. Resolvers fetch data for each field. Benefits over REST: no over-fetching, single endpoint, strong typing, introspection. Use DataLoader for batching and caching.", Tags: []string{"graphql", "api", "web"}},
	{ID: "doc-023", Title: "Microservices Architecture", Content: "Microservices decompose applications into small, independently deployable services. Each service owns its data and communicates via APIs (REST/gRPC) or async messaging (Kafka, RabbitMQ). Benefits: independent scaling, technology diversity, fault isolation. Patterns include API Gateway, Circuit Breaker, Event Sourcing, and CQRS.", Tags: []string{"architecture", "microservices", "distributed"}},
	{ID: "doc-024", Title: "Next.js App Router", Content: "Next.js App Router uses a file-system based router with React Server Components by default. Key features: layouts, loading.tsx, error.tsx, route groups, parallel routes, and intercepting routes. Server Actions handle form submissions. Supports static and dynamic rendering, ISR, and edge runtime.", Tags: []string{"nextjs", "react", "frontend"}},
	{ID: "doc-025", Title: "FastAPI Web Framework", Content: "FastAPI is a modern Python web framework for building APIs. Key features: automatic OpenAPI/Swagger docs, type validation via Pydantic, async/await support, dependency injection, middleware, and WebSocket support. Performance comparable to Node.js and Go thanks to Starlette and uvicorn.", Tags: []string{"fastapi", "python", "api"}},
}

// searchRelevanceThreshold is the minimum lexical score for a document
// to count as a result.
const searchRelevanceThreshold = 0.25

// DemoSearch ranks a fixed technical document corpus. The ranked_ids
// metadata feeds the ranking metric family (MRR, NDCG, MAP).
type DemoSearch struct {
	topK int
}

func NewDemoSearch(topK int) *DemoSearch {
	if topK <= 0 {
		topK = 5
	}
	return &DemoSearch{topK: topK}
}

func (a *DemoSearch) Setup(ctx context.Context) error { return nil }
func (a *DemoSearch) Teardown() error                 { return nil }

func (a *DemoSearch) Run(ctx context.Context, query string) (*models.PipelineOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type scored struct {
		doc   searchDocument
		score float64
	}
	ranked := make([]scored, 0, len(searchDocuments))
	for _, doc := range searchDocuments {
		s := a.score(query, doc)
		if s >= searchRelevanceThreshold {
			ranked = append(ranked, scored{doc: doc, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > a.topK {
		ranked = ranked[:a.topK]
	}

	if len(ranked) == 0 {
		return &models.PipelineOutput{
			Answer: "No relevant results found. The local knowledge base does not cover this topic.",
			Metadata: map[string]any{
				"adapter":      "demo_search",
				"source":       "none",
				"top_k":        a.topK,
				"result_count": 0,
				"ranked_ids":   []string{},
			},
		}, nil
	}

	contexts := make([]string, 0, len(ranked))
	rankedIDs := make([]string, 0, len(ranked))
	scores := make(map[string]float64, len(ranked))
	for _, r := range ranked {
		contexts = append(contexts, fmt.Sprintf("[%s] %s: %s", r.doc.ID, r.doc.Title, r.doc.Content))
		rankedIDs = append(rankedIDs, r.doc.ID)
		scores[r.doc.ID] = r.score
	}
	best := ranked[0].doc

	return &models.PipelineOutput{
		Answer:            fmt.Sprintf("%s: %s", best.Title, best.Content),
		RetrievedContexts: contexts,
		Metadata: map[string]any{
			"adapter":             "demo_search",
			"source":              "local",
			"top_k":               a.topK,
			"result_count":        len(ranked),
			"relevance_threshold": searchRelevanceThreshold,
			"top_doc_id":          best.ID,
			"ranked_ids":          rankedIDs,
			"scores":              scores,
		},
	}, nil
}

// score combines title, content, and tag overlap. Title and tag hits
// weigh more than body hits, approximating field-boosted search.
func (a *DemoSearch) score(query string, doc searchDocument) float64 {
	title := lexicalScore(query, doc.Title)
	content := lexicalScore(query, doc.Content)

	tagText := ""
	for _, tag := range doc.Tags {
		tagText += tag + " "
	}
	tags := lexicalScore(query, tagText)

	return 0.5*title + 0.3*content + 0.2*tags
}
