// Package firerest makes the Firestore v1 REST API behave like the
// higher-level document client: chained collection and document
// references, Get/Set/Add/Delete, in-memory Where filtering and snapshots
// with decoded data.
//
// # Usage
//
//	client, err := firerest.New(ctx,
//	    firerest.WithProject("my-project"),
//	    firerest.WithCredentialsFile("service-account.json"),
//	)
//	if err != nil { ... }
//	defer client.Close()
//
//	users := client.Collection("users")
//	ref, _, err := users.Add(ctx, map[string]any{"name": "Ada", "age": 36})
//
//	adults, _ := users.Where("age", ">=", 21)
//	snap, err := adults.Get(ctx)
//	snap.ForEach(func(doc *firerest.DocumentSnapshot) {
//	    fmt.Println(doc.ID(), doc.Data())
//	})
//
//	_, err = ref.Set(ctx, map[string]any{"age": 37}, firerest.Merge())
//
// References are immutable values; navigation never performs I/O. Where
// predicates are evaluated client-side after the whole collection is read.
//
// # Backends
//
// By default requests go to the public REST endpoint. WithEmulator targets a
// local Firestore emulator, and WithValkey/WithRedis store documents in a
// key-value server using the same wire format.
package firerest
