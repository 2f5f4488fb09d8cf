/*
Package lighthouse is the HTTP client for the Lighthouse storage network.

Requests go to four hosts:

1. API host - auth challenges and deal status
2. Upload node - multipart uploads (/api/v0/add)
3. Gateway - plain downloads, optionally through a storage.MultiGateway
4. Key service - one node per key shard (setSharedKey, retrieveSharedKey,
setAccessConditions, getZkConditions)

Authenticated calls carry the signature of the current challenge as a bearer
token. Issuing a new challenge invalidates tokens signed over the previous
one, so every signed call obtains its own token.
*/
package lighthouse
