// Package client provides a high-level client for the association's
// membership administration.
//
// Two backend API shapes are supported behind one interface: the Directus
// REST backend (collections under /items, bearer token) and the legacy
// Lassie RPC backend (model/method calls signed with an API key and
// secret). The backend is chosen at construction; every operation returns
// the same canonical values regardless of which one answers.
//
// # Basic Usage
//
//	c, err := client.NewDirectus(os.Getenv("DAVINCI_TOKEN"),
//	    client.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	names, err := c.GetListOfNames(ctx, true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ok, err := c.Authenticate(ctx, 42, pin)
//
// # Error Handling
//
// Failed calls return one of the error kinds with helper functions:
//
//	m, err := c.GetMember(ctx, id)
//	if err != nil {
//	    switch {
//	    case client.IsNotFound(err):
//	        // No such member
//	    case client.IsPermissionDenied(err):
//	        // Credential rejected
//	    case client.IsServiceError(err):
//	        // Any other backend failure
//	    }
//	}
//
// Transport failures such as timeouts or refused connections are returned
// as they come from net/http.
//
// # Deprecated Operations
//
// UpdatePerson, GetMembershipsByID and GetPayableMembershipsByID are kept
// for old callers. They return ErrNotImplemented unless the client is
// created with WithDeprecatedOperations.
package client
