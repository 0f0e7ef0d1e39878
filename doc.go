// Package roster is a typed repository and query layer for members and
// teams. It assembles the generic stores in package repository into
// MemberRepository and TeamRepository, adds method-name derived queries and
// a Service bound to the global database of package database.
//
// A minimal in-memory setup:
//
//	store := roster.NewMemory()
//	team := entity.NewTeam("teamA")
//	_, _ = store.Teams.Insert(ctx, team)
//	_, _ = store.Members.Insert(ctx, entity.NewMember("member1", 10, team))
//	page, err := store.Members.FindByAge(ctx, 10, req)
//
// For SQL, initialize the database and use NewSQL:
//
//	db, err := database.InitDB(ctx, database.DefaultConfig())
//	store := roster.NewSQL(db)
package roster
