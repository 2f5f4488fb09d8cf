/*
Package httpserver serves a local emulation of the Lighthouse storage
services for offline development and tests.

A single listener answers for every host the tools talk to, so the API,
node, gateway and encryption URLs can all point at the same address:

  - GET  /api/auth/get_message?publicKey=  issues a challenge to sign
  - POST /api/v0/add                       stores a multipart "file" part
  - POST /api/v0/cat/{cid}                 returns stored bytes as uploaded
  - GET  /ipfs/{cid}                       gateway path, refuses encrypted objects
  - GET  /api/lighthouse/deal_status?cid=  reports a single queued deal
  - POST /api/setSharedKey/{node}          stores a key shard for the owner
  - POST /api/retrieveSharedKey/{node}     releases a shard to the owner or to
    callers satisfying the stored conditions
  - POST /api/setAccessConditions/{node}   replaces the condition set
  - GET  /api/getZkConditions/{cid}        returns the stored condition set
  - POST /rpc                              eth_blockNumber for the emulated chain

Privileged calls carry "Authorization: Bearer <signature>" where the
signature is an EIP-191 personal signature over the latest challenge issued
to the caller's address.

Only getBlockNumber conditions are evaluated, against a height set with
Emulator.SetHeight.
*/
package httpserver
