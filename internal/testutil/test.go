// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package test provides utility functions and fixture data for the test
// suite: a cached test configuration and sample batch inputs shared across
// packages.
package test

import (
	"log"
	"os"
	"testing"

	"github.com/ecomlisting/go-listing-batch/internal/cloud"
)

// StateManager caches the test configuration so it loads once per test run.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is non-nil. Reduces boilerplate in
// tests that load fixtures.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestProductCSV returns a small, well-formed product CSV covering the
// embedded image URL column.
func GetTestProductCSV() string {
	return `Listing Id,Product Id,Title,Description,Image URLs
L-1001,P-2001,Walnut Desk Organizer,"Handcrafted walnut organizer with five compartments.","https://img.example.com/l1001-a.jpg, https://img.example.com/l1001-b.png"
L-1002,P-2002,Ceramic Pour-Over Set,"Matte ceramic pour-over coffee set with wooden collar.",
L-1003,P-2003,Linen Throw Blanket,"Stonewashed linen throw in sage green.",https://img.example.com/l1003.jpeg
`
}

// GetTestProductCSVWithBadRows returns a CSV whose second and fourth rows
// are malformed (missing title, missing product id).
func GetTestProductCSVWithBadRows() string {
	return `Listing Id,Product Id,Title,Description
L-1001,P-2001,Walnut Desk Organizer,Handcrafted walnut organizer.
L-1002,P-2002,,Missing its title.
L-1003,P-2003,Linen Throw Blanket,Stonewashed linen throw.
L-1004,,No Product Id,Missing its product id.
`
}

// GetTestImagesJSON returns an image manifest matching the second fixture
// listing, which has no embedded image column.
func GetTestImagesJSON() string {
	return `[
  {
    "listingId": "L-1002",
    "productId": "P-2002",
    "images": [
      { "imageURL": "https://img.example.com/l1002-a.jpg" },
      { "imageURL": "https://img.example.com/l1002-b.jpg" }
    ]
  }
]`
}

// GetTestTriggerMessageText returns the JSON payload of a batch trigger
// message referencing Drive file ids.
func GetTestTriggerMessageText() string {
	return `{
  "csv_file_id": "drive-file-csv-001",
  "images_json_file_id": "drive-file-images-001"
}`
}

// SetupOS points the configuration loader at the test TOML files.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is the singleton accessor for the test configuration.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}
