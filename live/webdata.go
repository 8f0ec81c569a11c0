// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package live

import (
	"github.com/gobuffalo/packr"
)

// WebdataBox holds the browser client served at the root of the server.
var WebdataBox = packr.NewBox("webdata")
