/*
Package brainio gives access to recorded neural assemblies and the stimulus sets
used to elicit them.

Identifiers are resolved through one or more catalogs, the artifacts they point to
are fetched into a content-addressed local cache and verified against their SHA1,
and assemblies are returned as labeled arrays whose dimensions may carry several
coordinate levels.

	cfg, err := brainio.LoadConfig("brainio.toml")
	client, err := brainio.New(cfg)
	assy, err := client.GetAssembly(ctx, "dicarlo.MajajHong2015.public")
	it, err := assy.Sel("region", "IT")
	grouped, err := it.MultiGroupBy("category_name", "object_name")
	means, err := grouped.Mean("presentation")

Configuration

A TOML file sets the local cache, the log file and the catalogs:

	[fetch]
	home = "/data/brainio"   # overridden by $BRAINIO_HOME
	cache_mb = 16            # memo of verified digests

	[fetch.engine]           # see fetch.Configure
	s3_region = "us-east-1"
	timeout = 300            # seconds per HTTP(S) request

	[cache]
	max_assemblies = 8       # 0 keeps every loaded assembly

	[logging]
	logfile = "brainio.log"
	max_log_size = 100       # MB
	max_log_age = 30         # days

	[catalog.brainio_contrib]
	path = "catalogs/brainio_contrib.csv"

Relative paths are resolved against the directory of the TOML file.  Without any
[catalog] section the sources registered with lookup.RegisterSource are used.

Catalogs are CSV files with the columns

	identifier,lookup_type,class,location_type,location,sha1,stimulus_set_identifier

Rows that differ only in the catalog they come from are the same record.  A stimulus
set has a CSV table, a zip archive of images, or both.
*/
package brainio
