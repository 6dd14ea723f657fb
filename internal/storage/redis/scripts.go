package redis

const (
	// putSnapshotScript stores a snapshot and indexes it by fetch time
	putSnapshotScript = `
local snapshot_key = KEYS[1]   -- propinv:snapshot:{source}
local index_key = KEYS[2]      -- propinv:snapshots

local source = ARGV[1]
local payload = ARGV[2]
local fetched_at = tonumber(ARGV[3])

redis.call('SET', snapshot_key, payload)
redis.call('ZADD', index_key, fetched_at, source)

return 'OK'
`

	// addRefreshLogScript stores a refresh log and adds it to the global
	// and per-source indexes
	addRefreshLogScript = `
local log_key = KEYS[1]        -- propinv:refresh:{id}
local index_key = KEYS[2]      -- propinv:refresh:index
local source_key = KEYS[3]     -- propinv:refresh:source:{source}
local sources_key = KEYS[4]    -- propinv:refresh:sources

local id = ARGV[1]
local payload = ARGV[2]
local ts = tonumber(ARGV[3])
local source = ARGV[4]

redis.call('SET', log_key, payload)
redis.call('ZADD', index_key, ts, id)
redis.call('ZADD', source_key, ts, id)
redis.call('SADD', sources_key, source)

return 'OK'
`

	// deleteBeforeScript removes index members scored before a cutoff and
	// their value keys, returning how many were removed
	deleteBeforeScript = `
local index_key = KEYS[1]
local prefix = ARGV[1]
local cutoff = ARGV[2]

local members = redis.call('ZRANGEBYSCORE', index_key, '-inf', '(' .. cutoff)
for _, member in ipairs(members) do
  redis.call('DEL', prefix .. member)
  redis.call('ZREM', index_key, member)
end

return #members
`
)
