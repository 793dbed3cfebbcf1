// Package testdb opens the integration test database and isolates tests in
// rolled-back transactions.
//
// Tests that need PostgreSQL call GetTestDBWithT, which skips the test when
// no database URL is configured and otherwise applies every migration:
//
//	db := testdb.GetTestDBWithT(t)
//	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//		songs := postgres.NewPostgresSongStore(tx, nil)
//		// ...
//	})
package testdb
