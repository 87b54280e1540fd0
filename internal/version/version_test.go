/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionDefaultsToDevelopment(t *testing.T) {
	out := Version()
	require.Equal(t, DevelopmentVersion, out.Version)
	require.Nil(t, out.BuildTime)

	b, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":"dev"}`, string(b))
}

func TestVersionParsesUnixBuildTimestamp(t *testing.T) {
	saved := BuildTimestamp
	t.Cleanup(func() { BuildTimestamp = saved })
	BuildTimestamp = "1700000000"

	out := Version()
	require.NotNil(t, out.BuildTime)

	b, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":"dev","buildTimestamp":"2023-11-14T22:13:20Z"}`, string(b))

	var parsed VersionOutput
	require.NoError(t, json.Unmarshal(b, &parsed))
	require.True(t, parsed.BuildTime.Equal(out.BuildTime.Time))
}
