package sqlinline

const QCreateHistoryTable = `--sql 3c6f1d2e-8a47-4b1f-9e0c-5d2a7b9e4f10
create table if not exists generation_history (
  id uuid primary key,
  kind text not null,
  query text not null default '',
  item_count int not null default 0,
  payload jsonb not null default '{}'::jsonb,
  created_at timestamptz not null default now()
);
`

const QCreateHistoryIndex = `--sql 8e2b4c61-0f3d-4a9a-b7c5-1e6d9f2a3b84
create index if not exists generation_history_created_at_idx
  on generation_history (created_at desc);
`

const QInsertHistory = `--sql a1d94e27-6b5c-4f83-8c0e-2f7b1a9d5e63
insert into generation_history(id, kind, query, item_count, payload, created_at)
values ($1::uuid, $2::text, $3::text, $4::int, $5::jsonb, $6::timestamptz);
`

const QSelectHistoryByID = `--sql 5f7c2a90-3e1b-4d6f-a8b2-9c4e0d1f6a37
select id::text, kind, query, item_count, payload, created_at
from generation_history
where id = $1::uuid
limit 1;
`

const QListHistory = `--sql d4b8e1f3-7a2c-4e95-b0d6-3f1a8c5e2b79
select id::text, kind, query, item_count, created_at
from generation_history
where ($1::text = '' or kind = $1::text)
order by created_at desc
limit $2::int;
`
