// Package vectorstore keeps embedded documents in memory and finds the ones
// closest to a query by cosine similarity.
//
//	entries, _ := embeddings.NewBuilder[WordDefinition](model).Documents(defs...).Build(ctx)
//	index := vectorstore.FromEntries(entries).Index(model)
//	a, _ := agent.NewBuilder(provider, "gpt-4o").DynamicContext(1, index).Build()
package vectorstore
