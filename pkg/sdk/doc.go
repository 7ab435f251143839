// Package exsearch embeds the example search engine in a Go program without the HTTP server.
//
// The client loads a static corpus of code examples with precomputed embeddings and answers
// natural-language queries with the closest examples, ranked by L2 distance.
//
//	client, _ := exsearch.New(ctx,
//	    exsearch.WithCorpusFile("data/examples.json"),
//	    exsearch.WithOpenAI("http://localhost:8081/v1", "", "sentence-transformers/all-MiniLM-L6-v2"),
//	)
//	defer client.Close()
//
//	resp, _ := client.Search(ctx, "retry http requests with backoff", exsearch.WithLimit(5))
//	for _, r := range resp.Results {
//	    fmt.Printf("%5.1f  %s\n", r.Similarity, r.Example.Title)
//	}
//
// The embedding model is initialized once, lazily on the first query or eagerly via Warm.
// Queries issued while it initializes wait on the same attempt.
package exsearch
