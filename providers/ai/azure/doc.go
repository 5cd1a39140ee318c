// Package azure implements the ai provider interfaces for Azure OpenAI on top
// of the openai wire format, adding deployment routing, the api-version query
// parameter and Azure authentication (api-key, bearer token or an azcore
// TokenCredential such as azidentity.DefaultAzureCredential).
package azure
