// Package dawnorm maps Go structs onto PostgreSQL-compatible tables.
//
// A record type implements Entity, usually through code generated by the
// dawnorm command, and DbSet builds and runs queries against a table of such
// records:
//
//	client := dawnorm.NewClient(drv)
//	posts := dawnorm.Set[blog.Post](client, blog.PostTable)
//
//	post, err := posts.
//	    Filter("title = $1 OR id = $2", dawnorm.Params("hello", 2)...).
//	    OrderBy(blog.PostFields.Title, dawnorm.Desc).
//	    Take(1).
//	    First(ctx)
//
// A DbSet is single-use: the first terminal operation (First, ToList,
// Insert, ...) consumes it. Create a new one per query.
//
// # Errors
//
// Client failures are returned as *TransportError, a strict read without
// result as *NoResultError (errors.Is(err, ErrNoResult)) and undecodable
// columns as *DecodeError. Programming errors, such as running a filtered
// bulk delete without a filter, panic with a *MisuseError.
package dawnorm
