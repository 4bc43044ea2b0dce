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

package datajpa

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tomoncle/datajpa/entity"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML seed document:
//
//	teams:
//	  - name: teamA
//	    members:
//	      - {name: member1, age: 10}
//	members:
//	  - {name: loner, age: 30}
type Fixture struct {
	Teams   []TeamFixture   `yaml:"teams"`
	Members []MemberFixture `yaml:"members"`
}

type TeamFixture struct {
	Name    string          `yaml:"name"`
	Members []MemberFixture `yaml:"members"`
}

type MemberFixture struct {
	Name string `yaml:"name"`
	Age  int    `yaml:"age"`
}

// SeedResult counts the records written by a seed run.
type SeedResult struct {
	Teams   int
	Members int
}

// Seeder writes fixtures through the service so that validation and the
// relationship rules apply.
type Seeder struct {
	svc *Service
}

func NewSeeder(svc *Service) *Seeder {
	return &Seeder{svc: svc}
}

// LoadFixture decodes a fixture document. Unknown keys are rejected.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// SeedFile loads and seeds the fixture at path.
func (s *Seeder) SeedFile(ctx context.Context, path string) (*SeedResult, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()

	f, err := LoadFixture(fh)
	if err != nil {
		return nil, err
	}
	return s.Seed(ctx, f)
}

// Seed writes the fixture in one transaction. Any failure leaves the store
// untouched.
func (s *Seeder) Seed(ctx context.Context, f *Fixture) (*SeedResult, error) {
	res := &SeedResult{}
	err := s.svc.WithinTx(ctx, func(ctx context.Context) error {
		for _, tf := range f.Teams {
			team := entity.NewTeam(tf.Name)
			if err := s.svc.Teams().Insert(ctx, team); err != nil {
				return fmt.Errorf("seed team %q: %w", tf.Name, err)
			}
			res.Teams++
			for _, mf := range tf.Members {
				m := entity.NewMember(mf.Name, mf.Age)
				if err := s.svc.Resolver().SetReference(m, team); err != nil {
					return err
				}
				if err := s.svc.Members().Insert(ctx, m); err != nil {
					return fmt.Errorf("seed member %q: %w", mf.Name, err)
				}
				res.Members++
			}
		}
		for _, mf := range f.Members {
			if err := s.svc.Members().Insert(ctx, entity.NewMember(mf.Name, mf.Age)); err != nil {
				return fmt.Errorf("seed member %q: %w", mf.Name, err)
			}
			res.Members++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
