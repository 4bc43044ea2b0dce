/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package entity

import (
	"context"

	"github.com/tomoncle/datajpa/database"
	"github.com/uptrace/bun"
)

// Teams are created before members so the member foreign key resolves.
func init() {
	database.RegisterModel((*Team)(nil), 10)
	database.RegisterModel((*Member)(nil), 20)
	database.RegisterMigration(database.MigrationItem{
		Version:     "002",
		Name:        "member_name_index",
		Description: "Index member.name for the lookups by name",
		Up:          createMemberNameIndex,
	})
}

func createMemberNameIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*Member)(nil)).
		Index("idx_member_name").
		Column("name").
		Exec(ctx)
	return err
}
